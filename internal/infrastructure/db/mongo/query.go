package mongo

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/restaurant-directory/internal/core/domain"
)

// textFilter matches accounts whose name or email contains term, ignoring case.
// The term is matched literally.
func textFilter(term string) bson.M {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	return bson.M{"$or": bson.A{
		bson.M{"name": re},
		bson.M{"email": re},
	}}
}

// roleFilter matches accounts by the names of the roles joined in by
// withRolesStages. Names without a role document never match.
func roleFilter(names []string, match domain.RoleMatch) bson.M {
	op := "$in"
	if match == domain.RoleMatchAll {
		op = "$all"
	}
	return bson.M{"roles.name": bson.M{op: names}}
}

// withRolesStages joins each account with its memberships and role documents,
// leaving the roles in a "roles" array.
func withRolesStages() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionMemberships,
			"localField":   "_id",
			"foreignField": "account_id",
			"as":           "memberships",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionRoles,
			"localField":   "memberships.role_id",
			"foreignField": "_id",
			"as":           "roles",
		}}},
		{{Key: "$project", Value: bson.M{"memberships": 0}}},
	}
}

// directoryPipeline builds the single aggregation behind a directory page: the
// text predicate AND the role predicate, ordered by _id (insertion order), with
// the page and the total count computed in one $facet.
func directoryPipeline(q domain.DirectoryQuery) mongo.Pipeline {
	q = q.Normalized()

	var pipeline mongo.Pipeline
	if q.Search != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: textFilter(q.Search)}})
	}
	pipeline = append(pipeline, withRolesStages()...)
	if len(q.Roles) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: roleFilter(q.Roles, q.RoleMatch)}})
	}

	pipeline = append(pipeline,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		bson.D{{Key: "$facet", Value: bson.M{
			"items": bson.A{
				bson.M{"$skip": int64(q.Offset())},
				bson.M{"$limit": int64(q.PerPage)},
			},
			"total": bson.A{
				bson.M{"$count": "count"},
			},
		}}},
	)
	return pipeline
}
