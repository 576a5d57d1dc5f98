package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"fintrack/internal/blob"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// MaxPhotoBytes bounds avatar uploads.
const MaxPhotoBytes = 5 << 20

var photoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ProfileService owns the profile document: display name, avatar and the
// custom category sequences.
type ProfileService struct {
	store    storage.ProfileStore
	blobs    blob.Store
	builtins core.Builtins
	logger   *applog.Logger

	// promotions serializes read-modify-write of a user's custom lists.
	promotions keyedMutex
}

func NewProfileService(store storage.ProfileStore, blobs blob.Store, builtins core.Builtins, logger *applog.Logger) *ProfileService {
	if builtins == nil {
		builtins = core.DefaultBuiltins()
	}
	return &ProfileService{
		store:    store,
		blobs:    blobs,
		builtins: builtins,
		logger:   logger.WithComponent(applog.ComponentProfile),
	}
}

func (s *ProfileService) Builtins() core.Builtins {
	return s.builtins
}

// Profile returns the user's profile document.
func (s *ProfileService) Profile(ctx context.Context, uid string) (core.UserProfile, error) {
	p, err := s.store.GetProfile(ctx, uid)
	if errors.Is(err, storage.ErrNotFound) {
		return core.UserProfile{}, err
	}
	if err != nil {
		return core.UserProfile{}, external(ServiceStore, "load profile", err)
	}
	return p, nil
}

// Categories returns the candidate list for t, sentinel last.
func (s *ProfileService) Categories(ctx context.Context, uid string, t core.TransactionType) ([]string, error) {
	if !t.IsValid() {
		return nil, core.ErrInvalidType
	}
	p, err := s.Profile(ctx, uid)
	if err != nil {
		return nil, err
	}
	return core.Candidates(t, s.builtins, p.CustomCategories), nil
}

// ResolveCategory turns a selection into the canonical category. A promoted
// custom category is persisted before it is returned; when that write fails
// the caller gets an ExternalServiceError and must not save the record.
func (s *ProfileService) ResolveCategory(ctx context.Context, uid string, t core.TransactionType, selection, freeform string) (string, error) {
	unlock := s.promotions.Lock(uid)
	defer unlock()

	p, err := s.Profile(ctx, uid)
	if err != nil {
		return "", err
	}

	res, err := core.Resolve(t, s.builtins, p.CustomCategories, selection, freeform)
	if err != nil {
		return "", &core.ValidationError{Kind: core.MissingCategory, Field: "category", Err: err}
	}
	if !res.Promoted || slices.Equal(res.Customs, p.CustomCategories.For(t)) {
		return res.Category, nil
	}

	if err := s.store.UpdateCustomCategories(ctx, uid, t, res.Customs); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist custom category",
			applog.FieldUserID, uid,
			applog.FieldType, t.String(),
			applog.FieldCategory, res.Category,
			applog.FieldError, err.Error(),
		)
		return "", external(ServiceStore, "update custom categories", err)
	}

	s.logger.InfoContext(ctx, "Custom category promoted",
		applog.FieldUserID, uid,
		applog.FieldType, t.String(),
		applog.FieldCategory, res.Category,
		applog.FieldOperation, applog.OpResolve,
	)
	return res.Category, nil
}

// UpdateName changes the display name.
func (s *ProfileService) UpdateName(ctx context.Context, uid, name string) (core.UserProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.UserProfile{}, ErrEmptyName
	}
	err := s.store.UpdateName(ctx, uid, name)
	if errors.Is(err, storage.ErrNotFound) {
		return core.UserProfile{}, err
	}
	if err != nil {
		return core.UserProfile{}, external(ServiceStore, "update name", err)
	}
	return s.Profile(ctx, uid)
}

// UploadPhoto stores the avatar and points the profile at it. contentType
// may be empty, in which case it is sniffed from data.
func (s *ProfileService) UploadPhoto(ctx context.Context, uid string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", blob.ErrEmptyUpload
	}
	if len(data) > MaxPhotoBytes {
		return "", ErrPhotoTooLarge
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if mediaType, _, _ := strings.Cut(contentType, ";"); !photoTypes[strings.TrimSpace(mediaType)] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}

	path := blob.AvatarPath(uid)
	url, err := s.blobs.Upload(ctx, path, data, contentType)
	if err != nil {
		return "", external(ServiceBlob, "upload", err)
	}
	if err := s.store.UpdatePhotoURL(ctx, uid, url); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", err
		}
		return "", external(ServiceStore, "update photo url", err)
	}

	s.logger.InfoContext(ctx, "Photo uploaded",
		applog.FieldUserID, uid,
		applog.FieldBlobPath, path,
		applog.FieldOperation, applog.OpUpload,
	)
	return url, nil
}

// keyedMutex hands out one lock per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		if m.refs--; m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
