// Package mongodb is the MongoDB implementation of storage.Storage.
//
// Students live in one collection as documents of the form
//
//	{ _id: ObjectId, name, age, course, grades: [..], createdAt, updatedAt }
//
// Connection pooling and server selection are left to the driver.
package mongodb

import (
	"context"
	"time"

	"github.com/aanand-mishra/students-api/internal/config"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDB holds the shared client and the students collection handle.
type MongoDB struct {
	client     *mongo.Client
	collection *mongo.Collection

	now func() time.Time
}

var _ storage.Storage = (*MongoDB)(nil)

// studentDocument is the BSON shape of a student.
type studentDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Age       int                `bson:"age"`
	Course    string             `bson:"course"`
	Grades    []float64          `bson:"grades"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d studentDocument) toStudent() types.Student {
	grades := d.Grades
	if grades == nil {
		grades = []float64{}
	}
	return types.Student{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Age:       d.Age,
		Course:    d.Course,
		Grades:    grades,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// New creates the client for cfg.Storage.MongoURI. The driver connects
// lazily; callers gate readiness with Ping.
func New(ctx context.Context, cfg *config.Config) (*MongoDB, error) {
	opts := options.Client().
		ApplyURI(cfg.Storage.MongoURI).
		SetConnectTimeout(cfg.Storage.ConnectTimeout).
		SetServerSelectionTimeout(cfg.Storage.ConnectTimeout)
	if cfg.Storage.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.Storage.MongoMaxPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "problem connecting to the database")
	}

	return &MongoDB{
		client:     client,
		collection: client.Database(cfg.Storage.MongoDatabase).Collection(cfg.Storage.MongoCollection),
		now:        time.Now,
	}, nil
}

// timestamp is the current time at the millisecond precision BSON dates
// keep.
func (m *MongoDB) timestamp() time.Time {
	return m.now().UTC().Truncate(time.Millisecond)
}

// byID builds the _id filter. An id that is not an ObjectID cannot match
// any document.
func byID(id string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, storage.ErrNotFound
	}
	return bson.M{"_id": oid}, nil
}

// CreateStudent inserts a new document.
func (m *MongoDB) CreateStudent(ctx context.Context, in types.StudentInput) (types.Student, error) {
	now := m.timestamp()
	doc := studentDocument{
		ID:        primitive.NewObjectID(),
		Name:      in.Name,
		Course:    in.Course,
		Grades:    append([]float64{}, in.Grades...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Age != nil {
		doc.Age = *in.Age
	}

	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		return types.Student{}, errors.Wrap(err, "inserting student")
	}

	return doc.toStudent(), nil
}

// GetStudentByID finds one document by _id.
func (m *MongoDB) GetStudentByID(ctx context.Context, id string) (types.Student, error) {
	filter, err := byID(id)
	if err != nil {
		return types.Student{}, err
	}

	var doc studentDocument
	if err := m.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Student{}, storage.ErrNotFound
		}
		return types.Student{}, errors.Wrapf(err, "finding student '%s'", id)
	}

	return doc.toStudent(), nil
}

// GetStudents returns every document ordered by _id, which is creation
// order for generated ObjectIDs.
func (m *MongoDB) GetStudents(ctx context.Context) ([]types.Student, error) {
	cur, err := m.collection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "finding students")
	}

	var docs []studentDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding students")
	}

	students := make([]types.Student, 0, len(docs))
	for _, doc := range docs {
		students = append(students, doc.toStudent())
	}
	return students, nil
}

// ReplaceStudentByID replaces the whole document with one built from in,
// so omitted grades become an empty list and fields outside the schema are
// dropped. _id and createdAt carry over from the stored document.
func (m *MongoDB) ReplaceStudentByID(ctx context.Context, id string, in types.StudentInput) (types.Student, error) {
	filter, err := byID(id)
	if err != nil {
		return types.Student{}, err
	}

	var existing struct {
		ID        primitive.ObjectID `bson:"_id"`
		CreatedAt time.Time          `bson:"createdAt"`
	}
	err = m.collection.FindOne(ctx, filter,
		options.FindOne().SetProjection(bson.M{"_id": 1, "createdAt": 1}),
	).Decode(&existing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Student{}, storage.ErrNotFound
		}
		return types.Student{}, errors.Wrapf(err, "finding student '%s'", id)
	}

	replacement := replaceDocument(existing.ID, existing.CreatedAt, in, m.timestamp())

	var doc studentDocument
	err = m.collection.FindOneAndReplace(ctx, filter, replacement,
		options.FindOneAndReplace().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		// deleted between the read and the replace
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Student{}, storage.ErrNotFound
		}
		return types.Student{}, errors.Wrapf(err, "replacing student '%s'", id)
	}

	return doc.toStudent(), nil
}

// UpdateStudentByID sets only the fields supplied in patch.
func (m *MongoDB) UpdateStudentByID(ctx context.Context, id string, patch types.StudentPatch) (types.Student, error) {
	filter, err := byID(id)
	if err != nil {
		return types.Student{}, err
	}

	return m.findOneAndUpdate(ctx, filter, patchUpdate(patch, m.timestamp()))
}

func (m *MongoDB) findOneAndUpdate(ctx context.Context, filter bson.M, update bson.M) (types.Student, error) {
	var doc studentDocument
	err := m.collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Student{}, storage.ErrNotFound
		}
		return types.Student{}, errors.Wrap(err, "updating student")
	}

	return doc.toStudent(), nil
}

// replaceDocument builds the full replacement for a PUT.
func replaceDocument(id primitive.ObjectID, createdAt time.Time, in types.StudentInput, now time.Time) studentDocument {
	doc := studentDocument{
		ID:        id,
		Name:      in.Name,
		Course:    in.Course,
		Grades:    append([]float64{}, in.Grades...),
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	if in.Age != nil {
		doc.Age = *in.Age
	}
	return doc
}

// patchUpdate builds the $set for the supplied fields only. updatedAt is
// always refreshed, even for an empty patch.
func patchUpdate(p types.StudentPatch, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Age != nil {
		set["age"] = *p.Age
	}
	if p.Course != nil {
		set["course"] = *p.Course
	}
	if p.Grades != nil {
		grades := *p.Grades
		if grades == nil {
			grades = []float64{}
		}
		set["grades"] = grades
	}

	return bson.M{"$set": set}
}

// DeleteStudentByID removes one document by _id.
func (m *MongoDB) DeleteStudentByID(ctx context.Context, id string) error {
	filter, err := byID(id)
	if err != nil {
		return err
	}

	res, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return errors.Wrapf(err, "deleting student '%s'", id)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// Ping round-trips to the primary.
func (m *MongoDB) Ping(ctx context.Context) error {
	return errors.Wrap(m.client.Ping(ctx, readpref.Primary()), "pinging database")
}

// Close disconnects the client and its pool.
func (m *MongoDB) Close(ctx context.Context) error {
	return errors.Wrap(m.client.Disconnect(ctx), "disconnecting from database")
}
