package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 3, cfg.DefaultDepth)
	assert.Equal(t, 0, cfg.DefaultTimer)
	assert.Equal(t, []int{0, 60, 120, 180}, cfg.TimerOptions)
	assert.Equal(t, "http://localhost:8080", cfg.PublicURL)
}

func TestFromEnv(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, cfg Config)
		wantErr string
	}{
		{
			name: "overrides",
			env: map[string]string{
				"ADDR":                ":9000",
				"DEFAULT_DEPTH":       "4",
				"ROUND_TIMER_OPTIONS": "0, 30 ,90",
				"PUBLIC_URL":          "https://pyramid.example/",
			},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, ":9000", cfg.Addr)
				assert.Equal(t, 4, cfg.DefaultDepth)
				assert.Equal(t, []int{0, 30, 90}, cfg.TimerOptions)
				assert.Equal(t, "https://pyramid.example", cfg.PublicURL)
			},
		},
		{
			name:    "postgres without dsn",
			env:     map[string]string{"STORE_DRIVER": "Postgres"},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "unknown driver",
			env:     map[string]string{"STORE_DRIVER": "redis"},
			wantErr: "STORE_DRIVER",
		},
		{
			name:    "bad numbers",
			env:     map[string]string{"DEFAULT_DEPTH": "three", "ROUND_TIMER_OPTIONS": "0,-5"},
			wantErr: "DEFAULT_DEPTH",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := FromEnv(envOf(tc.env))
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}
