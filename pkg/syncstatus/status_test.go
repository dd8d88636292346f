package syncstatus_test

import (
	"testing"

	"github.com/illmade-knight/go-querycache/pkg/syncstatus"
	"github.com/stretchr/testify/assert"
)

func TestClassifiers(t *testing.T) {
	testCases := []struct {
		message     string
		defaultWant syncstatus.Level
		wordWant    syncstatus.Level
	}{
		{"Database sync complete.", syncstatus.LevelSuccess, syncstatus.LevelSuccess},
		{"Error syncing database", syncstatus.LevelError, syncstatus.LevelError},
		{"RPC ERROR: timeout", syncstatus.LevelError, syncstatus.LevelError},
		{"3 errors while syncing", syncstatus.LevelError, syncstatus.LevelError},
		{"Error-free sync finished", syncstatus.LevelError, syncstatus.LevelSuccess},
		{"no_error_found", syncstatus.LevelError, syncstatus.LevelSuccess},
		{"Unexpected condition occurred", syncstatus.LevelSuccess, syncstatus.LevelSuccess},
	}
	for _, tc := range testCases {
		t.Run(tc.message, func(t *testing.T) {
			assert.Equal(t, tc.defaultWant, syncstatus.DefaultClassifier(tc.message))
			assert.Equal(t, tc.wordWant, syncstatus.WordClassifier(tc.message))
		})
	}
}

func TestComputeIndicator(t *testing.T) {
	ok := &syncstatus.Entry{Message: "Synced block 100", Level: syncstatus.LevelSuccess}
	bad := &syncstatus.Entry{Message: "Sync failed", Level: syncstatus.LevelError}

	assert.Equal(t, syncstatus.Indicator{Variant: syncstatus.VariantIdle, Label: "Sync paused"}, syncstatus.ComputeIndicator(false, bad))
	assert.Equal(t, syncstatus.Indicator{Variant: syncstatus.VariantIdle, Label: "Sync paused"}, syncstatus.ComputeIndicator(false, nil))
	assert.Equal(t, syncstatus.Indicator{Variant: syncstatus.VariantIdle, Label: "Waiting for sync"}, syncstatus.ComputeIndicator(true, nil))
	assert.Equal(t, syncstatus.Indicator{Variant: syncstatus.VariantSuccess, Label: "Synced block 100"}, syncstatus.ComputeIndicator(true, ok))
	assert.Equal(t, syncstatus.Indicator{Variant: syncstatus.VariantError, Label: "Sync failed"}, syncstatus.ComputeIndicator(true, bad))
}

func TestParseLevel(t *testing.T) {
	l, ok := syncstatus.ParseLevel(" Error ")
	assert.True(t, ok)
	assert.Equal(t, syncstatus.LevelError, l)

	_, ok = syncstatus.ParseLevel("warning")
	assert.False(t, ok)
}
