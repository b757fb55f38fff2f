// Package database connects to ScyllaDB and MinIO and implements the
// repositories the services depend on.
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"brewdrop_back_end/internal/config"

	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ScyllaConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	SSLEnabled  bool
	CACertPath  string
	Timeout     time.Duration
	NumConns    int
	Consistency gocql.Consistency
}

func ScyllaConfigFrom(s config.Settings) ScyllaConfig {
	return ScyllaConfig{
		Hosts:       s.ScyllaHosts,
		Keyspace:    s.ScyllaKeyspace,
		Username:    s.ScyllaUsername,
		Password:    s.ScyllaPassword,
		SSLEnabled:  s.ScyllaSSL,
		CACertPath:  s.ScyllaCAPath,
		Timeout:     s.ScyllaTimeout,
		NumConns:    20,
		Consistency: gocql.Quorum,
	}
}

func createScyllaCluster(cfg ScyllaConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = cfg.Consistency
	cluster.Timeout = cfg.Timeout
	cluster.NumConns = cfg.NumConns

	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = 1 * time.Second
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	if cfg.SSLEnabled {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 cfg.CACertPath,
			EnableHostVerification: cfg.CACertPath != "",
		}
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster
}

// ConnectScylla opens a session on the configured keyspace.
func ConnectScylla(cfg ScyllaConfig) (*gocql.Session, error) {
	session, err := createScyllaCluster(cfg).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("scylla session for %s: %w", cfg.Keyspace, err)
	}
	log.Printf("✅ Connected to ScyllaDB keyspace '%s'", cfg.Keyspace)
	return session, nil
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ConnectMinIO returns a client with the bucket created if missing.
func ConnectMinIO(ctx context.Context, cfg MinIOConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
		log.Println("🪣 Bucket created:", cfg.Bucket)
	}
	log.Println("✅ Connected to MinIO:", cfg.Endpoint)
	return client, nil
}
