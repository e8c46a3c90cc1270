package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"podpal/internal/common"
	"podpal/internal/domain/model"
	"podpal/internal/domain/repository"
	"podpal/internal/platform/transcriber"
)

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "h:" + p, nil }
func (plainHasher) Verify(p, h string) bool      { return h == "h:"+p }

// fakeAccounts mimics the store contract: unique emails, all-or-nothing signup.
type fakeAccounts struct {
	mu          sync.Mutex
	hasher      model.PasswordHasher
	users       map[string]*model.User
	channels    map[string]*model.Channel
	seq         int
	failChannel error
	findErr     error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		hasher:   plainHasher{},
		users:    map[string]*model.User{},
		channels: map[string]*model.Channel{},
	}
}

func (f *fakeAccounts) CreateUserAndChannel(_ context.Context, u *model.User, c *model.Channel) error {
	if err := u.HashPendingPassword(f.hasher); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: %w", repository.ErrEmailTaken, common.ErrConflict)
		}
	}
	if f.failChannel != nil {
		return fmt.Errorf("insert channel: %w", f.failChannel)
	}
	f.seq++
	u.CreatedAt = time.Unix(int64(f.seq), 0)
	uc := *u
	cc := *c
	f.users[u.ID] = &uc
	f.channels[c.ID] = &cc
	return nil
}

func (f *fakeAccounts) ExistsByEmail(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccounts) FindUserByIdentifier(_ context.Context, id model.Identifier) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var matches []*model.User
	for _, u := range f.users {
		if (id.Kind == model.IdentifierEmail && u.Email == id.Value) ||
			(id.Kind == model.IdentifierName && u.Name == id.Value) {
			matches = append(matches, u)
		}
	}
	if len(matches) == 0 {
		return nil, common.ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) })
	u := *matches[0]
	return &u, nil
}

func (f *fakeAccounts) FindUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp, nil
}

func (f *fakeAccounts) UpdateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[u.ID]
	if !ok {
		return common.ErrNotFound
	}
	if u.PasswordChanged() {
		if err := u.HashPendingPassword(f.hasher); err != nil {
			return err
		}
		stored.PasswordHash = u.PasswordHash
	}
	stored.Name = u.Name
	return nil
}

func (f *fakeAccounts) ListUsers(_ context.Context, limit, offset int) ([]model.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		cp := *u
		cp.PasswordHash = ""
		all = append(all, cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	total := int64(len(all))
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeAccounts) FindChannelByUser(_ context.Context, userID string) (*model.Channel, error) {
	return f.findChannel(func(c *model.Channel) bool { return c.UserID == userID })
}

func (f *fakeAccounts) FindChannelByID(_ context.Context, id string) (*model.Channel, error) {
	return f.findChannel(func(c *model.Channel) bool { return c.ID == id })
}

func (f *fakeAccounts) FindChannelBySlug(_ context.Context, slug string) (*model.Channel, error) {
	return f.findChannel(func(c *model.Channel) bool { return c.Slug == slug })
}

func (f *fakeAccounts) findChannel(match func(*model.Channel) bool) (*model.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.channels {
		if match(c) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeAccounts) Subscribe(_ context.Context, channelID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.channels[channelID]
	if !ok {
		return common.ErrNotFound
	}
	for _, id := range c.SubscriberIDs {
		if id == userID {
			return nil
		}
	}
	c.SubscriberIDs = append(c.SubscriberIDs, userID)
	return nil
}

func (f *fakeAccounts) Unsubscribe(_ context.Context, channelID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.channels[channelID]
	if !ok {
		return common.ErrNotFound
	}
	kept := c.SubscriberIDs[:0]
	for _, id := range c.SubscriberIDs {
		if id != userID {
			kept = append(kept, id)
		}
	}
	c.SubscriberIDs = kept
	return nil
}

func (f *fakeAccounts) Stats(context.Context) (model.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.Stats{Users: int64(len(f.users)), Channels: int64(len(f.channels))}, nil
}

type fakePodcasts struct {
	mu        sync.Mutex
	podcasts  map[string]*model.Podcast
	saved     map[string][]string
	liked     map[string][]string
	plays     map[string][]string
	createErr error
}

func newFakePodcasts() *fakePodcasts {
	return &fakePodcasts{
		podcasts: map[string]*model.Podcast{},
		saved:    map[string][]string{},
		liked:    map[string][]string{},
		plays:    map[string][]string{},
	}
}

func (f *fakePodcasts) Create(_ context.Context, p *model.Podcast) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.podcasts[p.ID] = &cp
	return nil
}

func (f *fakePodcasts) FindByID(_ context.Context, id string) (*model.Podcast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.podcasts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePodcasts) ListByChannel(_ context.Context, channelID string) ([]model.Podcast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Podcast{}
	for _, p := range f.podcasts {
		if p.ChannelID == channelID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePodcasts) SaveForUser(_ context.Context, userID, podcastID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[userID] = append(f.saved[userID], podcastID)
	return nil
}

func (f *fakePodcasts) LikeForChannel(_ context.Context, channelID, podcastID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.liked[channelID] = append(f.liked[channelID], podcastID)
	return nil
}

func (f *fakePodcasts) RecordPlay(_ context.Context, userID, podcastID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays[userID] = append([]string{podcastID}, f.plays[userID]...)
	return nil
}

type fakeAdmins struct {
	mu     sync.Mutex
	admins []*model.Admin
}

func (f *fakeAdmins) Create(_ context.Context, a *model.Admin) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertLocked(a)
}

func (f *fakeAdmins) CreateFirst(_ context.Context, a *model.Admin) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.admins) > 0 {
		return fmt.Errorf("an admin already exists: %w", common.ErrForbidden)
	}
	return f.insertLocked(a)
}

func (f *fakeAdmins) insertLocked(a *model.Admin) error {
	for _, existing := range f.admins {
		if existing.Email == a.Email {
			return common.ErrConflict
		}
	}
	cp := *a
	f.admins = append(f.admins, &cp)
	return nil
}

func (f *fakeAdmins) FindByIdentifier(_ context.Context, id model.Identifier) (*model.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.admins {
		if (id.Kind == model.IdentifierEmail && a.Email == id.Value) ||
			(id.Kind == model.IdentifierName && a.Username == id.Value) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	failOn  string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) Save(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	if f.failOn != "" && strings.HasPrefix(key, f.failOn) {
		return "", errors.New("storage unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]model.Transcription
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[string]model.Transcription{}}
}

func (f *fakeJobs) Save(_ context.Context, t *model.Transcription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[t.ID] = *t
	return nil
}

func (f *fakeJobs) FindByID(_ context.Context, id string) (*model.Transcription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.jobs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &t, nil
}

type fakeQueue struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeQueue) Push(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	return nil
}

type fakeTranscriber struct {
	submitErr error
	result    transcriber.Result
}

func (f *fakeTranscriber) Submit(context.Context, string) (transcriber.Result, error) {
	if f.submitErr != nil {
		return transcriber.Result{}, f.submitErr
	}
	return transcriber.Result{ID: "ext-1", Status: transcriber.StatusQueued}, nil
}

func (f *fakeTranscriber) Fetch(context.Context, string) (transcriber.Result, error) {
	return f.result, nil
}
