package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"podpal/internal/common"
	"podpal/internal/domain/model"
)

const (
	usersCollection    = "users"
	channelsCollection = "channels"
	podcastsCollection = "podcasts"
	adminsCollection   = "admins"
)

// Reads exclude the password unless a lookup explicitly needs it.
var withoutPassword = bson.D{{Key: "password", Value: 0}}

func translateMongoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return common.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return errors.Join(common.ErrConflict, err)
	}
	return err
}

// runInTransaction executes fn inside a session transaction; any error aborts it.
func runInTransaction(ctx context.Context, client *mongo.Client, fn func(ctx context.Context) error) error {
	session, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

type mongoAccountRepository struct {
	client *mongo.Client
	db     *mongo.Database
	hasher model.PasswordHasher
	now    func() time.Time
}

func NewMongoAccountRepository(client *mongo.Client, db *mongo.Database, hasher model.PasswordHasher) AccountRepository {
	return &mongoAccountRepository{client: client, db: db, hasher: hasher, now: time.Now}
}

func (r *mongoAccountRepository) CreateUserAndChannel(ctx context.Context, user *model.User, channel *model.Channel) error {
	if err := user.HashPendingPassword(r.hasher); err != nil {
		return fmt.Errorf("mongoAccountRepository.CreateUserAndChannel: %w", err)
	}

	now := r.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = now
	}
	channel.UserID = user.ID
	user.PodcastIDs = nonNil(user.PodcastIDs)
	user.SavedPodcastIDs = nonNil(user.SavedPodcastIDs)
	user.RecentlyPlayedIDs = nonNil(user.RecentlyPlayedIDs)
	channel.PodcastIDs = nonNil(channel.PodcastIDs)
	channel.LikedPodcastIDs = nonNil(channel.LikedPodcastIDs)
	channel.SubscriberIDs = nonNil(channel.SubscriberIDs)

	err := runInTransaction(ctx, r.client, func(ctx context.Context) error {
		if _, err := r.db.Collection(usersCollection).InsertOne(ctx, user); err != nil {
			err = translateMongoError(err)
			if errors.Is(err, common.ErrConflict) {
				return fmt.Errorf("%w: %w", ErrEmailTaken, err)
			}
			return fmt.Errorf("insert user: %w", err)
		}
		if _, err := r.db.Collection(channelsCollection).InsertOne(ctx, channel); err != nil {
			return fmt.Errorf("insert channel: %w", translateMongoError(err))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("mongoAccountRepository.CreateUserAndChannel: %w", err)
	}
	return nil
}

func (r *mongoAccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := r.db.Collection(usersCollection).CountDocuments(ctx, bson.D{{Key: "email", Value: email}}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongoAccountRepository.ExistsByEmail: %w", err)
	}
	return n > 0, nil
}

func (r *mongoAccountRepository) FindUserByIdentifier(ctx context.Context, id model.Identifier) (*model.User, error) {
	var filter bson.D
	switch id.Kind {
	case model.IdentifierEmail:
		filter = bson.D{{Key: "email", Value: id.Value}}
	case model.IdentifierName:
		filter = bson.D{{Key: "name", Value: id.Value}}
	default:
		return nil, fmt.Errorf("unsupported identifier kind %d: %w", id.Kind, common.ErrBadRequest)
	}

	user := &model.User{}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if err := r.db.Collection(usersCollection).FindOne(ctx, filter, opts).Decode(user); err != nil {
		if err = translateMongoError(err); errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("mongoAccountRepository.FindUserByIdentifier: %w", err)
	}
	return user, nil
}

func (r *mongoAccountRepository) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	opts := options.FindOne().SetProjection(withoutPassword)
	if err := r.db.Collection(usersCollection).FindOne(ctx, bson.D{{Key: "_id", Value: id}}, opts).Decode(user); err != nil {
		if err = translateMongoError(err); errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("mongoAccountRepository.FindUserByID: %w", err)
	}
	return user, nil
}

func (r *mongoAccountRepository) UpdateUser(ctx context.Context, user *model.User) error {
	set := bson.D{{Key: "name", Value: user.Name}}
	if user.PasswordChanged() {
		if err := user.HashPendingPassword(r.hasher); err != nil {
			return fmt.Errorf("mongoAccountRepository.UpdateUser: %w", err)
		}
		set = append(set, bson.E{Key: "password", Value: user.PasswordHash})
	}

	res, err := r.db.Collection(usersCollection).UpdateOne(ctx, bson.D{{Key: "_id", Value: user.ID}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return fmt.Errorf("mongoAccountRepository.UpdateUser: %w", translateMongoError(err))
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *mongoAccountRepository) ListUsers(ctx context.Context, limit, offset int) ([]model.User, int64, error) {
	coll := r.db.Collection(usersCollection)
	total, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, fmt.Errorf("mongoAccountRepository.ListUsers count: %w", err)
	}

	opts := options.Find().
		SetProjection(withoutPassword).
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("mongoAccountRepository.ListUsers: %w", err)
	}

	users := []model.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}
	return users, total, nil
}

func (r *mongoAccountRepository) FindChannelByUser(ctx context.Context, userID string) (*model.Channel, error) {
	return r.findChannel(ctx, bson.D{{Key: "user", Value: userID}})
}

func (r *mongoAccountRepository) FindChannelByID(ctx context.Context, id string) (*model.Channel, error) {
	return r.findChannel(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *mongoAccountRepository) FindChannelBySlug(ctx context.Context, slug string) (*model.Channel, error) {
	return r.findChannel(ctx, bson.D{{Key: "slug", Value: slug}})
}

func (r *mongoAccountRepository) findChannel(ctx context.Context, filter bson.D) (*model.Channel, error) {
	ch := &model.Channel{}
	if err := r.db.Collection(channelsCollection).FindOne(ctx, filter).Decode(ch); err != nil {
		if err = translateMongoError(err); errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("mongoAccountRepository.findChannel: %w", err)
	}
	return ch, nil
}

func (r *mongoAccountRepository) Subscribe(ctx context.Context, channelID, userID string) error {
	return r.updateChannel(ctx, channelID, bson.D{{Key: "$addToSet", Value: bson.D{{Key: "subscribers", Value: userID}}}})
}

func (r *mongoAccountRepository) Unsubscribe(ctx context.Context, channelID, userID string) error {
	return r.updateChannel(ctx, channelID, bson.D{{Key: "$pull", Value: bson.D{{Key: "subscribers", Value: userID}}}})
}

func (r *mongoAccountRepository) updateChannel(ctx context.Context, channelID string, update bson.D) error {
	res, err := r.db.Collection(channelsCollection).UpdateOne(ctx, bson.D{{Key: "_id", Value: channelID}}, update)
	if err != nil {
		return fmt.Errorf("mongoAccountRepository.updateChannel: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *mongoAccountRepository) Stats(ctx context.Context) (model.Stats, error) {
	var s model.Stats
	counts := []struct {
		coll string
		dst  *int64
	}{
		{usersCollection, &s.Users},
		{channelsCollection, &s.Channels},
		{podcastsCollection, &s.Podcasts},
		{adminsCollection, &s.Admins},
	}
	for _, c := range counts {
		n, err := r.db.Collection(c.coll).EstimatedDocumentCount(ctx)
		if err != nil {
			return model.Stats{}, fmt.Errorf("mongoAccountRepository.Stats %s: %w", c.coll, err)
		}
		*c.dst = n
	}
	return s, nil
}

type mongoPodcastRepository struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

func NewMongoPodcastRepository(client *mongo.Client, db *mongo.Database) PodcastRepository {
	return &mongoPodcastRepository{client: client, db: db, now: time.Now}
}

// Create inserts the podcast and appends it to the owner's and channel's lists atomically.
func (r *mongoPodcastRepository) Create(ctx context.Context, p *model.Podcast) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now().UTC()
	}
	err := runInTransaction(ctx, r.client, func(ctx context.Context) error {
		if _, err := r.db.Collection(podcastsCollection).InsertOne(ctx, p); err != nil {
			return fmt.Errorf("insert podcast: %w", translateMongoError(err))
		}
		push := func(coll, id string) error {
			res, err := r.db.Collection(coll).UpdateOne(ctx,
				bson.D{{Key: "_id", Value: id}},
				bson.D{{Key: "$push", Value: bson.D{{Key: "podcasts", Value: p.ID}}}})
			if err != nil {
				return fmt.Errorf("append podcast to %s: %w", coll, err)
			}
			if res.MatchedCount == 0 {
				return fmt.Errorf("%s %s: %w", coll, id, common.ErrNotFound)
			}
			return nil
		}
		if err := push(channelsCollection, p.ChannelID); err != nil {
			return err
		}
		return push(usersCollection, p.OwnerID)
	})
	if err != nil {
		return fmt.Errorf("mongoPodcastRepository.Create: %w", err)
	}
	return nil
}

func (r *mongoPodcastRepository) FindByID(ctx context.Context, id string) (*model.Podcast, error) {
	p := &model.Podcast{}
	if err := r.db.Collection(podcastsCollection).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(p); err != nil {
		if err = translateMongoError(err); errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("mongoPodcastRepository.FindByID: %w", err)
	}
	return p, nil
}

func (r *mongoPodcastRepository) ListByChannel(ctx context.Context, channelID string) ([]model.Podcast, error) {
	cursor, err := r.db.Collection(podcastsCollection).Find(ctx,
		bson.D{{Key: "channel", Value: channelID}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("mongoPodcastRepository.ListByChannel: %w", err)
	}
	podcasts := []model.Podcast{}
	if err := cursor.All(ctx, &podcasts); err != nil {
		return nil, fmt.Errorf("decode podcasts: %w", err)
	}
	return podcasts, nil
}

func (r *mongoPodcastRepository) SaveForUser(ctx context.Context, userID, podcastID string) error {
	return r.addToSet(ctx, usersCollection, userID, "saved_podcasts", podcastID)
}

func (r *mongoPodcastRepository) LikeForChannel(ctx context.Context, channelID, podcastID string) error {
	return r.addToSet(ctx, channelsCollection, channelID, "liked_podcasts", podcastID)
}

func (r *mongoPodcastRepository) RecordPlay(ctx context.Context, userID, podcastID string) error {
	return runInTransaction(ctx, r.client, func(ctx context.Context) error {
		users := r.db.Collection(usersCollection)
		filter := bson.D{{Key: "_id", Value: userID}}
		if _, err := users.UpdateOne(ctx, filter, bson.D{{Key: "$pull", Value: bson.D{{Key: "recently_played", Value: podcastID}}}}); err != nil {
			return fmt.Errorf("mongoPodcastRepository.RecordPlay pull: %w", err)
		}
		res, err := users.UpdateOne(ctx, filter, bson.D{{Key: "$push", Value: bson.D{{Key: "recently_played", Value: bson.D{
			{Key: "$each", Value: bson.A{podcastID}},
			{Key: "$position", Value: 0},
			{Key: "$slice", Value: RecentPlaysLimit},
		}}}}})
		if err != nil {
			return fmt.Errorf("mongoPodcastRepository.RecordPlay push: %w", err)
		}
		if res.MatchedCount == 0 {
			return common.ErrNotFound
		}
		return nil
	})
}

func (r *mongoPodcastRepository) addToSet(ctx context.Context, coll, id, field, value string) error {
	res, err := r.db.Collection(coll).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$addToSet", Value: bson.D{{Key: field, Value: value}}}})
	if err != nil {
		return fmt.Errorf("mongoPodcastRepository.addToSet %s.%s: %w", coll, field, err)
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

type mongoAdminRepository struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

func NewMongoAdminRepository(client *mongo.Client, db *mongo.Database) AdminRepository {
	return &mongoAdminRepository{client: client, db: db, now: time.Now}
}

func (r *mongoAdminRepository) Create(ctx context.Context, admin *model.Admin) error {
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = r.now().UTC()
	}
	if _, err := r.db.Collection(adminsCollection).InsertOne(ctx, admin); err != nil {
		return fmt.Errorf("mongoAdminRepository.Create: %w", translateMongoError(err))
	}
	return nil
}

func (r *mongoAdminRepository) CreateFirst(ctx context.Context, admin *model.Admin) error {
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = r.now().UTC()
	}
	return runInTransaction(ctx, r.client, func(ctx context.Context) error {
		coll := r.db.Collection(adminsCollection)
		n, err := coll.CountDocuments(ctx, bson.D{}, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("an admin already exists: %w", common.ErrForbidden)
		}
		if _, err := coll.InsertOne(ctx, admin); err != nil {
			return fmt.Errorf("mongoAdminRepository.CreateFirst: %w", translateMongoError(err))
		}
		return nil
	})
}

func (r *mongoAdminRepository) FindByIdentifier(ctx context.Context, id model.Identifier) (*model.Admin, error) {
	var filter bson.D
	switch id.Kind {
	case model.IdentifierEmail:
		filter = bson.D{{Key: "email", Value: id.Value}}
	case model.IdentifierName:
		filter = bson.D{{Key: "username", Value: id.Value}}
	default:
		return nil, fmt.Errorf("unsupported identifier kind %d: %w", id.Kind, common.ErrBadRequest)
	}

	a := &model.Admin{}
	if err := r.db.Collection(adminsCollection).FindOne(ctx, filter).Decode(a); err != nil {
		if err = translateMongoError(err); errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("mongoAdminRepository.FindByIdentifier: %w", err)
	}
	return a, nil
}
