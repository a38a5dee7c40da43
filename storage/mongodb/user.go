package mongorepos

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ablespace/ablespace/core/user"
)

type userRepository struct {
	col *mongo.Collection
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *mongo.Database) *userRepository {
	return &userRepository{col: db.Collection(colUsers)}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, email, rollNumber string) error {
	if err := repo.col.FindOne(ctx, bson.M{"email": email}).Err(); err == nil {
		return user.ErrEmailExists
	} else if err != mongo.ErrNoDocuments {
		return fatalDBErr(err, "checking email uniqueness")
	}

	if rollNumber != "" {
		if err := repo.col.FindOne(ctx, bson.M{"roll_number": rollNumber}).Err(); err == nil {
			return user.ErrRollNumberExists
		} else if err != mongo.ErrNoDocuments {
			return fatalDBErr(err, "checking roll number uniqueness")
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = primitive.NewObjectID().Hex()
	if _, err := repo.col.InsertOne(ctx, usr); err != nil {
		return user.User{}, fatalDBErr(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getOne(ctx, bson.M{"_id": id})
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getOne(ctx, bson.M{"email": email})
}

func (repo *userRepository) getOne(ctx context.Context, filter bson.M) (user.User, error) {
	var usr user.User
	if err := repo.col.FindOne(ctx, filter).Decode(&usr); err != nil {
		if err == mongo.ErrNoDocuments {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fatalDBErr(err, "finding user")
	}
	return usr, nil
}

func (repo *userRepository) FilterStudentsByBranch(ctx context.Context, branches []string) ([]user.User, error) {
	cursor, err := repo.col.Find(ctx, bson.M{
		"role":   user.RoleStudent,
		"branch": bson.M{"$in": branches},
	})
	if err != nil {
		return nil, fatalDBErr(err, "querying students")
	}

	users := make([]user.User, 0)
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fatalDBErr(err, "decoding students")
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.col.ReplaceOne(ctx, bson.M{"_id": usr.ID}, usr)
	if err != nil {
		return user.User{}, fatalDBErr(err, "updating user")
	}
	if res.MatchedCount == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}
