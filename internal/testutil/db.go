package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// EnvMongoURI points tests at an existing MongoDB. When unset, a disposable
// single-node replica set is started in Docker.
const EnvMongoURI = "CATALOG_TEST_MONGO_URI"

var (
	clientOnce sync.Once
	client     *mongo.Client
	clientErr  error
)

// TestContext returns a context bounded to a generous per-test deadline.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// SetupTestDB returns a fresh, uniquely named database dropped at cleanup.
// The test is skipped when no MongoDB can be reached.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	clientOnce.Do(func() {
		client, clientErr = connect()
	})
	if clientErr != nil {
		t.Skipf("MongoDB unavailable: %v", clientErr)
	}

	db := client.Database("catalog_test_" + primitive.NewObjectID().Hex())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
	})
	return db
}

func connect() (*mongo.Client, error) {
	if uri := os.Getenv(EnvMongoURI); uri != "" {
		return dial(uri)
	}
	return startContainer()
}

func dial(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx, readpref.Primary()); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, err
	}
	return c, nil
}

// startContainer runs mongo as a one-member replica set so transactions are
// available to the code under test.
func startContainer() (*mongo.Client, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("docker pool: %w", err)
	}
	if err := pool.Client.Ping(); err != nil {
		return nil, fmt.Errorf("docker ping: %w", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "7.0",
		Cmd:        []string{"--replSet", "rs0", "--bind_ip_all"},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("start mongo: %w", err)
	}
	// Containers outlive the test binary; let Docker reap them.
	_ = resource.Expire(600)

	uri := fmt.Sprintf("mongodb://localhost:%s/?directConnection=true", resource.GetPort("27017/tcp"))
	pool.MaxWait = 120 * time.Second

	var c *mongo.Client
	if err := pool.Retry(func() error {
		var err error
		c, err = dial(uri)
		return err
	}); err != nil {
		_ = pool.Purge(resource)
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	initiate := bson.D{{Key: "replSetInitiate", Value: bson.M{
		"_id":     "rs0",
		"members": bson.A{bson.M{"_id": 0, "host": "localhost:27017"}},
	}}}
	if err := c.Database("admin").RunCommand(ctx, initiate).Err(); err != nil {
		_ = pool.Purge(resource)
		return nil, fmt.Errorf("replSetInitiate: %w", err)
	}

	if err := pool.Retry(func() error {
		var st struct {
			IsWritablePrimary bool `bson:"isWritablePrimary"`
		}
		if err := c.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&st); err != nil {
			return err
		}
		if !st.IsWritablePrimary {
			return fmt.Errorf("replica set not ready")
		}
		return nil
	}); err != nil {
		_ = pool.Purge(resource)
		return nil, err
	}
	return c, nil
}
