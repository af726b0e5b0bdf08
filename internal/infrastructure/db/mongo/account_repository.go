package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/restaurant-directory/internal/core/domain"
)

const (
	collectionAccounts    = "accounts"
	collectionRoles       = "roles"
	collectionMemberships = "role_memberships"
)

type accountDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
	// Roles is only populated by the $lookup stages, never written.
	Roles []roleDoc `bson:"roles,omitempty"`
}

type roleDoc struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	Name string             `bson:"name"`
}

type membershipDoc struct {
	AccountID primitive.ObjectID `bson:"account_id"`
	RoleID    primitive.ObjectID `bson:"role_id"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d *accountDoc) toDomain() *domain.Account {
	roles := make([]domain.Role, 0, len(d.Roles))
	for _, r := range d.Roles {
		roles = append(roles, domain.Role{ID: r.ID.Hex(), Name: r.Name})
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })

	return &domain.Account{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Roles:        roles,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// AccountRepository implements ports.AccountRepository on three collections:
// accounts, roles and the role_memberships join.
type AccountRepository struct {
	db          *mongo.Database
	accounts    *mongo.Collection
	roles       *mongo.Collection
	memberships *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{
		db:          db,
		accounts:    db.Collection(collectionAccounts),
		roles:       db.Collection(collectionRoles),
		memberships: db.Collection(collectionMemberships),
	}
}

// EnsureIndexes creates the unique indexes the repository relies on.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := r.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("accounts index: %w", err)
	}

	if _, err := r.roles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("roles index: %w", err)
	}

	if _, err := r.memberships.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "role_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "role_id", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("memberships index: %w", err)
	}
	return nil
}

// Create inserts the account and its memberships.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account, roleNames []string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	roleIDs, err := r.resolveRoles(ctx, roleNames)
	if err != nil {
		return nil, err
	}

	id := primitive.NewObjectID()
	err = r.withTransaction(ctx, func(ctx context.Context) error {
		return r.insertAccount(ctx, id, account, roleIDs)
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id.Hex())
}

// insertAccount writes the account document and its memberships. Without a
// transaction a failed membership write removes the account again, so a
// retried registration does not hit the unique email index.
func (r *AccountRepository) insertAccount(ctx context.Context, id primitive.ObjectID, account *domain.Account, roleIDs []primitive.ObjectID) error {
	_, err := r.accounts.InsertOne(ctx, accountDoc{
		ID:           id,
		Name:         account.Name,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}

	if err := r.syncRoles(ctx, id, roleIDs); err != nil {
		_, _ = r.memberships.DeleteMany(ctx, bson.M{"account_id": id})
		_, _ = r.accounts.DeleteOne(ctx, bson.M{"_id": id})
		return err
	}
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := append(mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$limit", Value: 1}},
	}, withRolesStages()...)

	cur, err := r.accounts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, fmt.Errorf("find account: %w", err)
		}
		return nil, domain.ErrAccountNotFound
	}

	var doc accountDoc
	if err := cur.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return doc.toDomain(), nil
}

type directoryFacet struct {
	Items []accountDoc `bson:"items"`
	Total []struct {
		Count int64 `bson:"count"`
	} `bson:"total"`
}

// Search runs the directory aggregation built by directoryPipeline.
func (r *AccountRepository) Search(ctx context.Context, q domain.DirectoryQuery) ([]domain.Account, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.accounts.Aggregate(ctx, directoryPipeline(q))
	if err != nil {
		return nil, 0, fmt.Errorf("search accounts: %w", err)
	}
	defer cur.Close(ctx)

	var facets []directoryFacet
	if err := cur.All(ctx, &facets); err != nil {
		return nil, 0, fmt.Errorf("decode accounts: %w", err)
	}

	accounts := []domain.Account{}
	var total int64
	if len(facets) > 0 {
		for i := range facets[0].Items {
			accounts = append(accounts, *facets[0].Items[i].toDomain())
		}
		if len(facets[0].Total) > 0 {
			total = facets[0].Total[0].Count
		}
	}
	return accounts, total, nil
}

// UpdateProfile sets name and email and replaces the role set, inside a
// transaction when the deployment supports one.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id, name, email string, roleNames []string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = r.withTransaction(ctx, func(ctx context.Context) error {
		roleIDs, err := r.resolveRoles(ctx, roleNames)
		if err != nil {
			return err
		}

		res, err := r.accounts.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
			"name":       name,
			"email":      email,
			"updated_at": time.Now().UTC(),
		}})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrAccountExists
			}
			return fmt.Errorf("update account: %w", err)
		}
		if res.MatchedCount == 0 {
			return domain.ErrAccountNotFound
		}
		return r.syncRoles(ctx, oid, roleIDs)
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *AccountRepository) SyncRoles(ctx context.Context, accountID string, roleNames []string) error {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.accounts.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("sync roles: %w", err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}

	roleIDs, err := r.resolveRoles(ctx, roleNames)
	if err != nil {
		return err
	}
	return r.withTransaction(ctx, func(ctx context.Context) error {
		return r.syncRoles(ctx, oid, roleIDs)
	})
}

// syncRoles removes memberships outside roleIDs and upserts the rest; the
// unique (account_id, role_id) index keeps upserts from duplicating rows.
func (r *AccountRepository) syncRoles(ctx context.Context, accountID primitive.ObjectID, roleIDs []primitive.ObjectID) error {
	if _, err := r.memberships.DeleteMany(ctx, bson.M{
		"account_id": accountID,
		"role_id":    bson.M{"$nin": roleIDs},
	}); err != nil {
		return fmt.Errorf("detach roles: %w", err)
	}

	now := time.Now().UTC()
	for _, roleID := range roleIDs {
		filter := bson.M{"account_id": accountID, "role_id": roleID}
		update := bson.M{"$setOnInsert": membershipDoc{AccountID: accountID, RoleID: roleID, CreatedAt: now}}
		if _, err := r.memberships.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			return fmt.Errorf("attach role: %w", err)
		}
	}
	return nil
}

// resolveRoles maps role names to IDs, failing with domain.ErrUnknownRole when
// any name has no role document.
func (r *AccountRepository) resolveRoles(ctx context.Context, names []string) ([]primitive.ObjectID, error) {
	names = domain.NormalizeRoleNames(names)
	if len(names) == 0 {
		return []primitive.ObjectID{}, nil
	}

	cur, err := r.roles.Find(ctx, bson.M{"name": bson.M{"$in": names}})
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	var docs []roleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	if len(docs) != len(names) {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnknownRole, names)
	}

	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.withTransaction(ctx, func(ctx context.Context) error {
		res, err := r.accounts.DeleteOne(ctx, bson.M{"_id": oid})
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		if res.DeletedCount == 0 {
			return domain.ErrAccountNotFound
		}
		if _, err := r.memberships.DeleteMany(ctx, bson.M{"account_id": oid}); err != nil {
			return fmt.Errorf("delete memberships: %w", err)
		}
		return nil
	})
}

func (r *AccountRepository) RoleNames(ctx context.Context, accountID string) ([]string, error) {
	account, err := r.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account.RoleNames(), nil
}

// withTransaction runs fn in a multi-document transaction. Standalone servers
// reject transactions; fn then runs without one.
func (r *AccountRepository) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := r.db.Client().StartSession()
	if err != nil {
		return fn(ctx)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if transactionsUnsupported(err) {
		return fn(ctx)
	}
	return err
}

func transactionsUnsupported(err error) bool {
	var ce mongo.CommandError
	if !errors.As(err, &ce) {
		return false
	}
	// IllegalOperation (20) on a standalone server,
	// OperationNotSupportedInTransaction (263) for writes a transaction rejects.
	return ce.Code == 20 || ce.Code == 263
}
