package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/emi420/underpass-go/internal/usecase"
)

type fakeBootstrapStore struct {
	initCalls  []string
	indexCalls []string
	initErr    error
	indexErr   error
}

func (s *fakeBootstrapStore) Initialize(ctx context.Context, ddlDir string) error {
	s.initCalls = append(s.initCalls, ddlDir)
	return s.initErr
}

func (s *fakeBootstrapStore) CreateIndexes(ctx context.Context, ddlDir string) error {
	s.indexCalls = append(s.indexCalls, ddlDir)
	return s.indexErr
}

func TestBootstrapUseCaseInitializeUsesConfiguredDDLDir(t *testing.T) {
	store := &fakeBootstrapStore{}
	uc := usecase.NewBootstrapUseCase(store, "internal/store/ddl", zap.NewNop())

	assert.NoError(t, uc.Initialize(context.Background()))
	assert.Equal(t, []string{"internal/store/ddl"}, store.initCalls)
}

func TestBootstrapUseCaseCreateIndexesPropagatesStoreError(t *testing.T) {
	store := &fakeBootstrapStore{indexErr: errors.New("ddl failed")}
	uc := usecase.NewBootstrapUseCase(store, "internal/store/ddl", zap.NewNop())

	err := uc.CreateIndexes(context.Background())
	assert.Error(t, err)
}

func TestBootstrapUseCaseBootstrapStopsOnInitializeFailure(t *testing.T) {
	store := &fakeBootstrapStore{initErr: errors.New("schema failed")}
	uc := usecase.NewBootstrapUseCase(store, "internal/store/ddl", zap.NewNop())

	err := uc.Bootstrap(context.Background(), nil, nil)
	assert.Error(t, err)
	assert.Empty(t, store.indexCalls, "CreateIndexes must not run when Initialize fails")
}
