package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// GridFSStore keeps blobs in a MongoDB GridFS bucket, keyed by filename.
type GridFSStore struct {
	client *mongo.Client
	bucket *gridfs.Bucket
}

type gridFSFile struct {
	ID       interface{} `bson:"_id"`
	Filename string      `bson:"filename"`
}

// NewGridFSStore connects to uri and opens bucket in database.
func NewGridFSStore(ctx context.Context, uri, database, bucket string) (*GridFSStore, error) {
	if uri == "" {
		return nil, errors.New("gridfs blob store requires MONGO_URI")
	}
	if database == "" {
		database = "photoshare"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	b, err := gridfs.NewBucket(client.Database(database), options.GridFSBucket().SetName(bucket))
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("open gridfs bucket %q: %w", bucket, err)
	}
	return &GridFSStore{client: client, bucket: b}, nil
}

func (s *GridFSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType})
	stream, err := s.bucket.OpenUploadStream(key, opts)
	if err != nil {
		return fmt.Errorf("open upload stream: %w", err)
	}
	if _, err := io.Copy(stream, readerWithContext(ctx, r)); err != nil {
		_ = stream.Abort()
		return fmt.Errorf("write blob %s: %w", key, err)
	}
	return stream.Close()
}

func (s *GridFSStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	stream, err := s.bucket.OpenDownloadStreamByName(key)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return stream, nil
}

// Delete removes every revision stored under key.
func (s *GridFSStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	files, err := s.find(ctx, bson.M{"filename": key})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return ErrNotFound
	}
	for _, f := range files {
		if err := s.bucket.DeleteContext(ctx, f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("delete blob %s: %w", key, err)
		}
	}
	return nil
}

func (s *GridFSStore) List(ctx context.Context) ([]string, error) {
	files, err := s.find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(files))
	keys := make([]string, 0, len(files))
	for _, f := range files {
		if _, ok := seen[f.Filename]; ok {
			continue
		}
		seen[f.Filename] = struct{}{}
		keys = append(keys, f.Filename)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *GridFSStore) find(ctx context.Context, filter bson.M) ([]gridFSFile, error) {
	cursor, err := s.bucket.FindContext(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find gridfs files: %w", err)
	}
	defer cursor.Close(ctx)

	var files []gridFSFile
	if err := cursor.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("decode gridfs files: %w", err)
	}
	return files, nil
}

func (s *GridFSStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *GridFSStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *GridFSStore) Backend() string { return BackendGridFS }
