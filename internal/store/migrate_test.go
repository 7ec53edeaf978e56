// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natours/natours/pkg/errutil"
)

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("invalid://url")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@db:5432/natours":   "pgx5://u:p@db:5432/natours",
		"postgresql://u:p@db:5432/natours": "pgx5://u:p@db:5432/natours",
		"pgx5://db/natours":                "pgx5://db/natours",
	}
	for in, want := range tests {
		assert.Equal(t, want, MigrateURL(in), in)
	}
}

// mockMigrate implements migrateIface for testing.
type mockMigrate struct {
	upErr          error
	downErr        error
	stepsErr       error
	versionVal     uint
	versionErr     error
	dirty          bool
	forceErr       error
	closeSourceErr error
	closeDbErr     error
}

func (m *mockMigrate) Up() error                    { return m.upErr }
func (m *mockMigrate) Down() error                  { return m.downErr }
func (m *mockMigrate) Steps(_ int) error            { return m.stepsErr }
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Force(_ int) error            { return m.forceErr }
func (m *mockMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDbErr }

func TestMigrator_UpDownSteps(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		mock     *mockMigrate
		run      func(*Migrator) error
		wantCode string
	}{
		{"up success", &mockMigrate{}, (*Migrator).Up, ""},
		{"up no change", &mockMigrate{upErr: migrate.ErrNoChange}, (*Migrator).Up, ""},
		{"up error", &mockMigrate{upErr: boom}, (*Migrator).Up, "MIGRATION_UP_FAILED"},
		{"down success", &mockMigrate{}, (*Migrator).Down, ""},
		{"down no change", &mockMigrate{downErr: migrate.ErrNoChange}, (*Migrator).Down, ""},
		{"down error", &mockMigrate{downErr: boom}, (*Migrator).Down, "MIGRATION_DOWN_FAILED"},
		{"steps success", &mockMigrate{}, func(m *Migrator) error { return m.Steps(1) }, ""},
		{"steps no change", &mockMigrate{stepsErr: migrate.ErrNoChange}, func(m *Migrator) error { return m.Steps(-1) }, ""},
		{"steps error", &mockMigrate{stepsErr: boom}, func(m *Migrator) error { return m.Steps(1) }, "MIGRATION_STEPS_FAILED"},
		{"force success", &mockMigrate{}, func(m *Migrator) error { return m.Force(1) }, ""},
		{"force error", &mockMigrate{forceErr: boom}, func(m *Migrator) error { return m.Force(1) }, "MIGRATION_FORCE_FAILED"},
		{"force negative", &mockMigrate{}, func(m *Migrator) error { return m.Force(-1) }, "INVALID_VERSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(&Migrator{m: tt.mock})
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestMigrator_Version(t *testing.T) {
	t.Run("current version", func(t *testing.T) {
		v, dirty, err := (&Migrator{m: &mockMigrate{versionVal: 2, dirty: true}}).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(2), v)
		assert.True(t, dirty)
	})

	t.Run("nothing applied", func(t *testing.T) {
		v, dirty, err := (&Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}).Version()
		require.NoError(t, err)
		assert.Zero(t, v)
		assert.False(t, dirty)
	})

	t.Run("error", func(t *testing.T) {
		_, _, err := (&Migrator{m: &mockMigrate{versionErr: errors.New("db gone")}}).Version()
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestMigrator_Close(t *testing.T) {
	require.NoError(t, (&Migrator{m: &mockMigrate{}}).Close())

	err := (&Migrator{m: &mockMigrate{closeSourceErr: errors.New("src")}}).Close()
	errutil.AssertErrorContext(t, err, "component", "source")

	err = (&Migrator{m: &mockMigrate{closeDbErr: errors.New("db")}}).Close()
	errutil.AssertErrorContext(t, err, "component", "database")

	err = (&Migrator{m: &mockMigrate{closeSourceErr: errors.New("src"), closeDbErr: errors.New("db")}}).Close()
	errutil.AssertErrorContext(t, err, "component", "both")
	assert.Contains(t, err.Error(), "src")
	assert.Contains(t, err.Error(), "db")
}

func TestMigrator_PendingAndApplied(t *testing.T) {
	all, err := allMigrationVersions()
	require.NoError(t, err)
	require.Equal(t, []uint{1, 2}, all)

	tests := []struct {
		current uint
		pending []uint
		applied []uint
	}{
		{0, []uint{1, 2}, nil},
		{1, []uint{2}, []uint{1}},
		{2, nil, []uint{1, 2}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("at version %d", tt.current), func(t *testing.T) {
			m := &Migrator{m: &mockMigrate{versionVal: tt.current}}

			pending, err := m.PendingMigrations()
			require.NoError(t, err)
			assert.Equal(t, tt.pending, pending)

			applied, err := m.AppliedMigrations()
			require.NoError(t, err)
			assert.Equal(t, tt.applied, applied)
		})
	}

	t.Run("version error", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionErr: errors.New("db gone")}}
		_, err := m.PendingMigrations()
		require.Error(t, err)
		_, err = m.AppliedMigrations()
		require.Error(t, err)
	})
}

func TestMigrationName(t *testing.T) {
	name, err := MigrationName(1)
	require.NoError(t, err)
	assert.Equal(t, "000001_create_accounts", name)

	name, err = MigrationName(2)
	require.NoError(t, err)
	assert.Equal(t, "000002_reset_token_index", name)

	name, err = MigrationName(99)
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestAllMigrationVersions_ReturnsCopy(t *testing.T) {
	first, err := allMigrationVersions()
	require.NoError(t, err)
	first[0] = 999

	second, err := allMigrationVersions()
	require.NoError(t, err)
	assert.Equal(t, uint(1), second[0])
}
