package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iou-ledger/internal/config"
	"iou-ledger/internal/domain"
)

const sqliteYAML = `
server:
  host: 0.0.0.0
  port: 9090
database:
  driver: sqlite
  path: /tmp/ledger.db
jwt:
  secret: 0123456789abcdef0123456789abcdef
storage:
  export_dir: /tmp/exports
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse([]byte(sqliteYAML))
	require.NoError(t, err)

	assert.Equal(t, config.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Ledger.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.OperationTimeout())
	assert.Equal(t, "USD", cfg.Ledger.Currency)
	assert.Equal(t, "system", cfg.Ledger.SystemActorID)
	assert.Equal(t, "0 0 2 * * *", cfg.Scheduler.ReconcileStatuses)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL())
	assert.Equal(t, "0.0.0.0:9090", cfg.GetServerAddress())
	assert.Empty(t, cfg.GetHTTPAddress())
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("LEDGER_MAX_RETRIES", "7")
	t.Setenv("SERVER_HTTP_PORT", "8080")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("EXPORT_DIR", "/srv/exports")

	cfg, err := config.Parse([]byte(sqliteYAML))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Ledger.MaxRetries)
	assert.Equal(t, "0.0.0.0:8080", cfg.GetHTTPAddress())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/srv/exports", cfg.Storage.ExportDir)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad port", "server: {port: 0}"},
		{"postgres without host", "server: {port: 1}\ndatabase: {driver: postgres}"},
		{"unknown driver", "server: {port: 1}\ndatabase: {driver: mysql}"},
		{"short secret", "server: {port: 1}\ndatabase: {driver: sqlite, path: x}\njwt: {secret: short}"},
		{"no export dir", "server: {port: 1}\ndatabase: {driver: sqlite, path: x}\njwt: {secret: 0123456789abcdef0123456789abcdef}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestPostgresConnectionString(t *testing.T) {
	cfg, err := config.Parse([]byte(`
server: {port: 9090}
database: {driver: postgres, host: db, port: 5432, user: ledger, password: pw, database: ious, statement_timeout_ms: 3000}
jwt: {secret: 0123456789abcdef0123456789abcdef}
storage: {export_dir: /tmp}
`))
	require.NoError(t, err)
	assert.Equal(t, "postgres://ledger:pw@db:5432/ious?sslmode=disable&statement_timeout=3000", cfg.GetDatabaseConnectionString())
}

func TestEndpointSecurity(t *testing.T) {
	reconcile := config.GetEndpointSecurity("/ledger.v1.LedgerService/ReconcileStatuses")
	assert.Equal(t, config.SecurityAccess, reconcile.Level)
	assert.True(t, reconcile.Allows(domain.RoleAdmin))
	assert.False(t, reconcile.Allows(domain.RoleManager))

	query := config.GetEndpointSecurity("/ledger.v1.LedgerService/QueryDebts")
	assert.True(t, query.Allows(domain.RoleUser))
	assert.False(t, query.Allows("guest"))

	unknown := config.GetEndpointSecurity("/other.Service/Method")
	assert.False(t, unknown.Allows(domain.RoleManager))

	assert.Equal(t, config.SecurityPublic, config.GetEndpointSecurity("/grpc.health.v1.Health/Check").Level)
}
