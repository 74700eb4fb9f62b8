package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/teslo-shop/realtime-gateway/internal/identity"
)

type user struct {
	Id       string   `bson:"_id"`
	Email    string   `bson:"email"`
	Password string   `bson:"password"`
	FullName string   `bson:"fullName"`
	IsActive bool     `bson:"isActive"`
	Roles    []string `bson:"roles"`
}

// Directory resolves subject ids against the users collection the CRUD
// backend writes to.
type Directory struct {
	collection *mongo.Collection
}

func NewDirectory(client *mongo.Client, database string) *Directory {
	collection := client.Database(database).Collection("users")

	return &Directory{
		collection,
	}
}

func (d *Directory) Setup(ctx context.Context) error {
	emailIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	_, err := d.collection.Indexes().CreateOne(ctx, emailIndexModel)

	return err
}

func (d *Directory) Lookup(ctx context.Context, subjectId string) (identity.Identity, error) {
	var u user

	err := d.collection.FindOne(ctx, bson.M{"_id": subjectId}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return identity.Identity{}, identity.ErrNotFound
	}
	if err != nil {
		return identity.Identity{}, err
	}

	return identity.Identity{
		UserId:   u.Id,
		Email:    u.Email,
		FullName: u.FullName,
		IsActive: u.IsActive,
		Roles:    u.Roles,
	}, nil
}

type SeedUser struct {
	Id       string
	Email    string
	Password string
	FullName string
	IsActive bool
	Roles    []string
}

// Seed replaces the users collection with the given users, hashing
// their passwords. Local development only.
func (d *Directory) Seed(ctx context.Context, users []SeedUser) error {
	_, err := d.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return err
	}

	documents := make([]any, 0, len(users))
	for _, seedUser := range users {
		hashed, err := bcrypt.GenerateFromPassword([]byte(seedUser.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		documents = append(documents, user{
			Id:       seedUser.Id,
			Email:    seedUser.Email,
			Password: string(hashed),
			FullName: seedUser.FullName,
			IsActive: seedUser.IsActive,
			Roles:    seedUser.Roles,
		})
	}

	_, err = d.collection.InsertMany(ctx, documents)

	return err
}
