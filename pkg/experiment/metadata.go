package experiment

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"

	"github.com/manuelbernhardt/benchmarks/pkg/conf"
)

const (
	metadataKindFlags   = "flags"
	metadataKindEnviron = "environ"
	metadataKindRun     = "run"
)

// Metadata store flags.
var (
	// MetadataEnabledFlag turns on recording of experiment metadata into Cassandra.
	MetadataEnabledFlag = conf.NewBoolFlag("metadata", "Record experiment metadata in Cassandra", false)
	// CassandraAddressFlag represents the Cassandra cluster address.
	CassandraAddressFlag = conf.NewStringFlag("cassandra_addr", "Address of the Cassandra metadata store", "127.0.0.1")
	// CassandraTimeoutFlag bounds Cassandra requests.
	CassandraTimeoutFlag = conf.NewDurationFlag("cassandra_timeout", "Timeout for Cassandra requests", 5*time.Second)
)

// MetadataConfig encodes the settings for connecting to the metadata store.
type MetadataConfig struct {
	CassandraAddress  string
	ConnectionTimeout time.Duration
}

// MetadataConfigFromFlags applies the Cassandra settings from the command
// line flags and environment variables.
func MetadataConfigFromFlags() MetadataConfig {
	return MetadataConfig{
		CassandraAddress:  CassandraAddressFlag.Value(),
		ConnectionTimeout: CassandraTimeoutFlag.Value(),
	}
}

// MetadataMap encodes the key value pairs to be stored.
type MetadataMap map[string]string

// Metadata keeps the Cassandra session alive, holds the active configuration
// and the experiment id to tag the metadata with.
type Metadata struct {
	experimentID string
	config       MetadataConfig
	session      *gocql.Session
}

// NewMetadata returns the Metadata helper from an experiment id and
// configuration. Connect() still needs to be called to get an active session.
func NewMetadata(experimentID string, config MetadataConfig) *Metadata {
	return &Metadata{
		experimentID: experimentID,
		config:       config,
	}
}

// Connect creates a session to the Cassandra cluster and prepares the
// keyspace and table. This function should only be called once.
func (m *Metadata) Connect() error {
	cluster := gocql.NewCluster(m.config.CassandraAddress)
	cluster.Consistency = gocql.LocalOne
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.ProtoVersion = 4
	cluster.Timeout = m.config.ConnectionTimeout

	session, err := cluster.CreateSession()
	if err != nil {
		return errors.Wrapf(err, "could not connect to Cassandra at %q", m.config.CassandraAddress)
	}
	m.session = session

	if err := session.Query("CREATE KEYSPACE IF NOT EXISTS benchmarks WITH REPLICATION = {'class': 'SimpleStrategy', 'replication_factor': 1};").Exec(); err != nil {
		return errors.Wrap(err, "could not create keyspace")
	}

	// Schema consistency check is ignored by CREATE queries; a simple SELECT
	// on system_schema.keyspaces forces agreement before we continue.
	if err = session.Query("SELECT * FROM system_schema.keyspaces;").Exec(); err != nil {
		return err
	}

	if err = session.Query("CREATE TABLE IF NOT EXISTS benchmarks.metadata (experiment_id text, kind text, time timestamp, timeuuid TIMEUUID, metadata map<text,text>, PRIMARY KEY ((experiment_id), timeuuid)) WITH CLUSTERING ORDER BY (timeuuid DESC);").Exec(); err != nil {
		return errors.Wrap(err, "could not create metadata table")
	}

	if err = session.Query("SELECT * FROM system_schema.keyspaces;").Exec(); err != nil {
		return err
	}

	return nil
}

func (m *Metadata) storeMap(metadata MetadataMap, kind string) error {
	return m.session.Query(`INSERT INTO benchmarks.metadata (experiment_id, kind, time, timeuuid, metadata) VALUES (?, ?, ?, ?, ?)`,
		m.experimentID, kind, time.Now(), gocql.TimeUUID(), metadata).Exec()
}

// RecordFlags saves the whole flag based configuration in the metadata store.
func (m *Metadata) RecordFlags() error {
	return m.storeMap(conf.GetFlags(), metadataKindFlags)
}

// RecordEnv stores all OS environment variables that start with prefix.
func (m *Metadata) RecordEnv(prefix string) error {
	metadata := MetadataMap{}
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, prefix) {
			fields := strings.SplitN(env, "=", 2)
			metadata[fields[0]] = fields[1]
		}
	}
	return m.storeMap(metadata, metadataKindEnviron)
}

// RecordRun stores one run configuration and its scenario label.
func (m *Metadata) RecordRun(scenario string, config RunConfig) error {
	return m.storeMap(MetadataMap{
		"scenario": scenario,
		"rate":     config.Rate,
		"length":   fmt.Sprintf("%d", config.Length),
		"burst":    fmt.Sprintf("%d", config.Burst),
		"run":      fmt.Sprintf("%d", config.Run),
	}, metadataKindRun)
}

// Close releases the Cassandra session.
func (m *Metadata) Close() {
	if m.session != nil {
		m.session.Close()
	}
}
