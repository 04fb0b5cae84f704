package testsuite

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// BaseSuite starts postgres and kafka in containers and runs the
// service's migrations against the fresh database. Service-level
// integration suites embed it.
type BaseSuite struct {
	suite.Suite
	PgContainer    *postgres.PostgresContainer
	KafkaContainer *kafka.KafkaContainer
	RedisContainer *tcredis.RedisContainer
	DBPool         *pgxpool.Pool
	KafkaBrokers   []string
	RedisAddr      string
	Ctx            context.Context
}

func (s *BaseSuite) SetupInfrastructure(migrationsRelPath string) {
	s.Ctx = context.Background()

	var err error
	s.PgContainer, err = postgres.Run(
		s.Ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	s.Require().NoError(err)

	connStr, err := s.PgContainer.ConnectionString(s.Ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.KafkaContainer, err = kafka.Run(
		s.Ctx,
		"confluentinc/cp-kafka:7.5.0",
		kafka.WithClusterID("test-cluster"),
	)
	s.Require().NoError(err)

	s.KafkaBrokers, err = s.KafkaContainer.Brokers(s.Ctx)
	s.Require().NoError(err)

	absPath, err := filepath.Abs(migrationsRelPath)
	s.Require().NoError(err)

	m, err := migrate.New("file://"+absPath, connStr)
	s.Require().NoError(err)
	s.Require().NoError(m.Up())

	s.DBPool, err = pgxpool.New(s.Ctx, connStr)
	s.Require().NoError(err)
}

// SetupRedis starts a redis container for suites that exercise a cache
// layer. Call it from SetupSuite after SetupInfrastructure.
func (s *BaseSuite) SetupRedis() {
	var err error
	s.RedisContainer, err = tcredis.Run(s.Ctx, "redis:7-alpine")
	s.Require().NoError(err)

	endpoint, err := s.RedisContainer.Endpoint(s.Ctx, "")
	s.Require().NoError(err)
	s.RedisAddr = endpoint
}

func (s *BaseSuite) TearDownInfrastructure() {
	if s.RedisContainer != nil {
		if err := s.RedisContainer.Terminate(s.Ctx); err != nil {
			log.Printf("Failed to terminate redis container: %v", err)
		}
	}
	if s.DBPool != nil {
		s.DBPool.Close()
	}
	if s.PgContainer != nil {
		if err := s.PgContainer.Terminate(s.Ctx); err != nil {
			log.Printf("Failed to terminate postgres container: %v", err)
		}
	}
	if s.KafkaContainer != nil {
		if err := s.KafkaContainer.Terminate(s.Ctx); err != nil {
			log.Printf("Failed to terminate kafka container: %v", err)
		}
	}
}

func (s *BaseSuite) TruncateTable(tableName string) {
	_, err := s.DBPool.Exec(s.Ctx, fmt.Sprintf("TRUNCATE %s CASCADE", tableName))
	s.Require().NoError(err)
}
