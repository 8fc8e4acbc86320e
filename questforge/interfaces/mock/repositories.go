package mock

import (
	context "context"
	reflect "reflect"

	models "github.com/fablesmith/questforge/questforge/database/models"
	gomock "go.uber.org/mock/gomock"
)

// MockDefinitionRepository is a mock of DefinitionRepository interface.
type MockDefinitionRepository struct {
	ctrl     *gomock.Controller
	recorder *MockDefinitionRepositoryMockRecorder
	isgomock struct{}
}

// MockDefinitionRepositoryMockRecorder is the mock recorder for MockDefinitionRepository.
type MockDefinitionRepositoryMockRecorder struct {
	mock *MockDefinitionRepository
}

// NewMockDefinitionRepository creates a new mock instance.
func NewMockDefinitionRepository(ctrl *gomock.Controller) *MockDefinitionRepository {
	mock := &MockDefinitionRepository{ctrl: ctrl}
	mock.recorder = &MockDefinitionRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockDefinitionRepository) EXPECT() *MockDefinitionRepositoryMockRecorder {
	return m.recorder
}

// Delete mocks base method.
func (m *MockDefinitionRepository) Delete(ctx context.Context, questID string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Delete", ctx, questID)
	ret0, _ := ret[0].(error)
	return ret0
}

// Delete indicates an expected call of Delete.
func (mr *MockDefinitionRepositoryMockRecorder) Delete(ctx, questID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Delete", reflect.TypeOf((*MockDefinitionRepository)(nil).Delete), ctx, questID)
}

// GetAll mocks base method.
func (m *MockDefinitionRepository) GetAll(ctx context.Context) ([]*models.QuestDefinition, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetAll", ctx)
	ret0, _ := ret[0].([]*models.QuestDefinition)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetAll indicates an expected call of GetAll.
func (mr *MockDefinitionRepositoryMockRecorder) GetAll(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetAll", reflect.TypeOf((*MockDefinitionRepository)(nil).GetAll), ctx)
}

// GetByID mocks base method.
func (m *MockDefinitionRepository) GetByID(ctx context.Context, questID string) (*models.QuestDefinition, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByID", ctx, questID)
	ret0, _ := ret[0].(*models.QuestDefinition)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByID indicates an expected call of GetByID.
func (mr *MockDefinitionRepositoryMockRecorder) GetByID(ctx, questID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockDefinitionRepository)(nil).GetByID), ctx, questID)
}

// Upsert mocks base method.
func (m *MockDefinitionRepository) Upsert(ctx context.Context, def *models.QuestDefinition) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Upsert", ctx, def)
	ret0, _ := ret[0].(error)
	return ret0
}

// Upsert indicates an expected call of Upsert.
func (mr *MockDefinitionRepositoryMockRecorder) Upsert(ctx, def any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Upsert", reflect.TypeOf((*MockDefinitionRepository)(nil).Upsert), ctx, def)
}

// MockProgressRepository is a mock of ProgressRepository interface.
type MockProgressRepository struct {
	ctrl     *gomock.Controller
	recorder *MockProgressRepositoryMockRecorder
	isgomock struct{}
}

// MockProgressRepositoryMockRecorder is the mock recorder for MockProgressRepository.
type MockProgressRepositoryMockRecorder struct {
	mock *MockProgressRepository
}

// NewMockProgressRepository creates a new mock instance.
func NewMockProgressRepository(ctrl *gomock.Controller) *MockProgressRepository {
	mock := &MockProgressRepository{ctrl: ctrl}
	mock.recorder = &MockProgressRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockProgressRepository) EXPECT() *MockProgressRepositoryMockRecorder {
	return m.recorder
}

// CompletedQuestIDs mocks base method.
func (m *MockProgressRepository) CompletedQuestIDs(ctx context.Context, userID string) ([]string, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CompletedQuestIDs", ctx, userID)
	ret0, _ := ret[0].([]string)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// CompletedQuestIDs indicates an expected call of CompletedQuestIDs.
func (mr *MockProgressRepositoryMockRecorder) CompletedQuestIDs(ctx, userID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CompletedQuestIDs", reflect.TypeOf((*MockProgressRepository)(nil).CompletedQuestIDs), ctx, userID)
}

// Create mocks base method.
func (m *MockProgressRepository) Create(ctx context.Context, progress *models.QuestProgress) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Create", ctx, progress)
	ret0, _ := ret[0].(error)
	return ret0
}

// Create indicates an expected call of Create.
func (mr *MockProgressRepositoryMockRecorder) Create(ctx, progress any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Create", reflect.TypeOf((*MockProgressRepository)(nil).Create), ctx, progress)
}

// Get mocks base method.
func (m *MockProgressRepository) Get(ctx context.Context, userID, questID string) (*models.QuestProgress, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Get", ctx, userID, questID)
	ret0, _ := ret[0].(*models.QuestProgress)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Get indicates an expected call of Get.
func (mr *MockProgressRepositoryMockRecorder) Get(ctx, userID, questID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Get", reflect.TypeOf((*MockProgressRepository)(nil).Get), ctx, userID, questID)
}

// GetActiveByUser mocks base method.
func (m *MockProgressRepository) GetActiveByUser(ctx context.Context, userID string) ([]*models.QuestProgress, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetActiveByUser", ctx, userID)
	ret0, _ := ret[0].([]*models.QuestProgress)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetActiveByUser indicates an expected call of GetActiveByUser.
func (mr *MockProgressRepositoryMockRecorder) GetActiveByUser(ctx, userID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetActiveByUser", reflect.TypeOf((*MockProgressRepository)(nil).GetActiveByUser), ctx, userID)
}

// Update mocks base method.
func (m *MockProgressRepository) Update(ctx context.Context, progress *models.QuestProgress, expectedVersion int64) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Update", ctx, progress, expectedVersion)
	ret0, _ := ret[0].(error)
	return ret0
}

// Update indicates an expected call of Update.
func (mr *MockProgressRepositoryMockRecorder) Update(ctx, progress, expectedVersion any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Update", reflect.TypeOf((*MockProgressRepository)(nil).Update), ctx, progress, expectedVersion)
}

// MockHeroRepository is a mock of HeroRepository interface.
type MockHeroRepository struct {
	ctrl     *gomock.Controller
	recorder *MockHeroRepositoryMockRecorder
	isgomock struct{}
}

// MockHeroRepositoryMockRecorder is the mock recorder for MockHeroRepository.
type MockHeroRepositoryMockRecorder struct {
	mock *MockHeroRepository
}

// NewMockHeroRepository creates a new mock instance.
func NewMockHeroRepository(ctrl *gomock.Controller) *MockHeroRepository {
	mock := &MockHeroRepository{ctrl: ctrl}
	mock.recorder = &MockHeroRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockHeroRepository) EXPECT() *MockHeroRepositoryMockRecorder {
	return m.recorder
}

// ApplyDelta mocks base method.
func (m *MockHeroRepository) ApplyDelta(ctx context.Context, userID string, delta *models.TurnDelta) (*models.HeroSnapshot, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ApplyDelta", ctx, userID, delta)
	ret0, _ := ret[0].(*models.HeroSnapshot)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ApplyDelta indicates an expected call of ApplyDelta.
func (mr *MockHeroRepositoryMockRecorder) ApplyDelta(ctx, userID, delta any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ApplyDelta", reflect.TypeOf((*MockHeroRepository)(nil).ApplyDelta), ctx, userID, delta)
}

// Create mocks base method.
func (m *MockHeroRepository) Create(ctx context.Context, hero *models.Hero) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Create", ctx, hero)
	ret0, _ := ret[0].(error)
	return ret0
}

// Create indicates an expected call of Create.
func (mr *MockHeroRepositoryMockRecorder) Create(ctx, hero any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Create", reflect.TypeOf((*MockHeroRepository)(nil).Create), ctx, hero)
}

// Get mocks base method.
func (m *MockHeroRepository) Get(ctx context.Context, userID string) (*models.Hero, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Get", ctx, userID)
	ret0, _ := ret[0].(*models.Hero)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Get indicates an expected call of Get.
func (mr *MockHeroRepositoryMockRecorder) Get(ctx, userID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Get", reflect.TypeOf((*MockHeroRepository)(nil).Get), ctx, userID)
}

// Snapshot mocks base method.
func (m *MockHeroRepository) Snapshot(ctx context.Context, userID string) (*models.HeroSnapshot, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Snapshot", ctx, userID)
	ret0, _ := ret[0].(*models.HeroSnapshot)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Snapshot indicates an expected call of Snapshot.
func (mr *MockHeroRepositoryMockRecorder) Snapshot(ctx, userID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Snapshot", reflect.TypeOf((*MockHeroRepository)(nil).Snapshot), ctx, userID)
}
