package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/de-tools/emr-cost/pkg/services/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var priceList = map[string]string{
	"/offers/v1.0/aws/index.json": `{"offers": {
		"AmazonEC2": {"currentRegionIndexUrl": "/ec2/region_index.json"},
		"ElasticMapReduce": {"currentRegionIndexUrl": "/emr/region_index.json"}
	}}`,
	"/ec2/region_index.json": `{"regions": {"eu-west-1": {"currentVersionUrl": "/ec2/eu-west-1.json"}}}`,
	"/emr/region_index.json": `{"regions": {"eu-west-1": {"currentVersionUrl": "/emr/eu-west-1.json"}}}`,
	"/ec2/eu-west-1.json":    `{"products": {}, "terms": {"OnDemand": {}}}`,
	"/emr/eu-west-1.json":    `{"products": {}, "terms": {"OnDemand": {}}}`,
}

// withStaticCredentials isolates the AWS SDK from the machine running the tests.
func withStaticCredentials(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_SESSION_TOKEN", "")
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	t.Setenv("EMRCOST_PRICING_BASE_URL", baseURL)
	t.Setenv("EMRCOST_REGION", "eu-west-1")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestNewServices(t *testing.T) {
	// Given
	withStaticCredentials(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := priceList[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	cfg.Export.Bucket = "reports"

	// When
	services, err := NewServices(context.Background(), cfg, nil)

	// Then
	require.NoError(t, err)
	assert.NotNil(t, services.Calculator)
	assert.NotNil(t, services.Exporter)
	assert.Nil(t, services.Store)
	assert.NoError(t, services.Close())
}

func TestNewServices_PriceListUnavailable(t *testing.T) {
	withStaticCredentials(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewServices(context.Background(), testConfig(t, server.URL), nil)

	assert.ErrorContains(t, err, "failed to load price catalog")
}

func TestServices_Close(t *testing.T) {
	var nilServices *Services
	assert.NoError(t, nilServices.Close())

	closeErr := errors.New("close failed")
	s := &Services{closers: []func() error{
		func() error { return nil },
		func() error { return closeErr },
	}}
	assert.ErrorIs(t, s.Close(), closeErr)
}
