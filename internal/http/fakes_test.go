package http

import (
	"context"
	"errors"

	"voice-808/internal/domain"
	"voice-808/internal/service"
	"voice-808/internal/storage"
)

var errNotStubbed = errors.New("not stubbed")

type fakeUsers struct {
	createUserFn      func(ctx context.Context, email, name, password string) (*domain.User, error)
	verifyPasswordFn  func(ctx context.Context, email, password string) (*domain.User, error)
	createAuthTokenFn func(ctx context.Context, userID int64) (string, error)
	getUserByTokenFn  func(ctx context.Context, token string) (*domain.User, error)
	deleteAuthTokenFn func(ctx context.Context, token string) error
	getUserByAPIKeyFn func(ctx context.Context, apiKey string) (*domain.User, error)
	rotateAPIKeyFn    func(ctx context.Context, userID int64) (string, error)
	deleteUserFn      func(ctx context.Context, id int64) error
}

func (f *fakeUsers) CreateUser(ctx context.Context, email, name, password string) (*domain.User, error) {
	if f.createUserFn == nil {
		return nil, errNotStubbed
	}
	return f.createUserFn(ctx, email, name, password)
}

func (f *fakeUsers) VerifyPassword(ctx context.Context, email, password string) (*domain.User, error) {
	if f.verifyPasswordFn == nil {
		return nil, errNotStubbed
	}
	return f.verifyPasswordFn(ctx, email, password)
}

func (f *fakeUsers) CreateAuthToken(ctx context.Context, userID int64) (string, error) {
	if f.createAuthTokenFn == nil {
		return "", errNotStubbed
	}
	return f.createAuthTokenFn(ctx, userID)
}

func (f *fakeUsers) GetUserByToken(ctx context.Context, token string) (*domain.User, error) {
	if f.getUserByTokenFn == nil {
		return nil, domain.ErrInvalidToken
	}
	return f.getUserByTokenFn(ctx, token)
}

func (f *fakeUsers) DeleteAuthToken(ctx context.Context, token string) error {
	if f.deleteAuthTokenFn == nil {
		return nil
	}
	return f.deleteAuthTokenFn(ctx, token)
}

func (f *fakeUsers) GetUserByAPIKey(ctx context.Context, apiKey string) (*domain.User, error) {
	if f.getUserByAPIKeyFn == nil {
		return nil, domain.ErrInvalidToken
	}
	return f.getUserByAPIKeyFn(ctx, apiKey)
}

func (f *fakeUsers) RotateAPIKey(ctx context.Context, userID int64) (string, error) {
	if f.rotateAPIKeyFn == nil {
		return "", errNotStubbed
	}
	return f.rotateAPIKeyFn(ctx, userID)
}

func (f *fakeUsers) GetByID(context.Context, int64) (*domain.User, error) {
	return nil, errNotStubbed
}

func (f *fakeUsers) DeleteUser(ctx context.Context, id int64) error {
	if f.deleteUserFn == nil {
		return errNotStubbed
	}
	return f.deleteUserFn(ctx, id)
}

type fakeVoice struct {
	generateFn func(ctx context.Context, userID int64, req service.GenerateRequest) (*service.GenerateResult, error)
	historyFn  func(ctx context.Context, userID int64, kind domain.GenerationType, limit, offset int) (*service.HistoryPage, error)
	recentFn   func(ctx context.Context, userID int64, n int) ([]domain.VoiceGeneration, error)
	filesFn    func(ctx context.Context, userID int64) ([]storage.ArchivedFile, error)
	purgeFn    func(ctx context.Context, userID int64) error
}

func (f *fakeVoice) Generate(ctx context.Context, userID int64, req service.GenerateRequest) (*service.GenerateResult, error) {
	if f.generateFn == nil {
		return nil, errNotStubbed
	}
	return f.generateFn(ctx, userID, req)
}

func (f *fakeVoice) History(ctx context.Context, userID int64, kind domain.GenerationType, limit, offset int) (*service.HistoryPage, error) {
	if f.historyFn == nil {
		return nil, errNotStubbed
	}
	return f.historyFn(ctx, userID, kind, limit, offset)
}

func (f *fakeVoice) Recent(ctx context.Context, userID int64, n int) ([]domain.VoiceGeneration, error) {
	if f.recentFn == nil {
		return nil, errNotStubbed
	}
	return f.recentFn(ctx, userID, n)
}

func (f *fakeVoice) ArchivedFiles(ctx context.Context, userID int64) ([]storage.ArchivedFile, error) {
	if f.filesFn == nil {
		return nil, nil
	}
	return f.filesFn(ctx, userID)
}

func (f *fakeVoice) PurgeArchive(ctx context.Context, userID int64) error {
	if f.purgeFn == nil {
		return nil
	}
	return f.purgeFn(ctx, userID)
}

type fakeUsage struct {
	statsFn func(ctx context.Context, userID int64) (*domain.UserStats, error)
	quotaFn func(ctx context.Context, userID int64) (*domain.Quota, error)
}

func (f *fakeUsage) Record(context.Context, int64, int64, int64, float64) error { return nil }

func (f *fakeUsage) RecordCall(context.Context, int64, int64) error { return nil }

func (f *fakeUsage) Get(context.Context, int64, string) (*domain.UserUsage, error) { return nil, nil }

func (f *fakeUsage) Stats(ctx context.Context, userID int64) (*domain.UserStats, error) {
	if f.statsFn == nil {
		return &domain.UserStats{}, nil
	}
	return f.statsFn(ctx, userID)
}

func (f *fakeUsage) Quota(ctx context.Context, userID int64) (*domain.Quota, error) {
	if f.quotaFn == nil {
		return &domain.Quota{}, nil
	}
	return f.quotaFn(ctx, userID)
}
