// Package pixelwar ties the canvas store and the cooldown table together
// into the operations clients and admins perform.
package pixelwar

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"pixelwar/internal/canvas"
	"pixelwar/internal/ratelimit"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrRateLimited     = errors.New("too many requests")
	ErrServiceInactive = errors.New("canvas is not accepting pixels")
	ErrInvalidCooldown = errors.New("invalid cooldown")
)

// MaxCooldownSeconds is the longest cooldown a time.Duration can hold.
const MaxCooldownSeconds = math.MaxInt64 / int64(time.Second)

// CooldownFromSeconds converts a cooldown given in whole seconds.
func CooldownFromSeconds(seconds int64) (time.Duration, error) {
	if seconds < 0 || seconds > MaxCooldownSeconds {
		return 0, fmt.Errorf("%w: %d seconds", ErrInvalidCooldown, seconds)
	}
	return time.Duration(seconds) * time.Second, nil
}

// Settings are the runtime knobs an admin can change.
type Settings struct {
	Active   bool
	Cooldown time.Duration
}

// Pixel is an accepted pixel write.
type Pixel struct {
	X     uint32 `json:"x"`
	Y     uint32 `json:"y"`
	Color string `json:"color"`
}

type Service struct {
	store   *canvas.Store
	limiter *ratelimit.Cooldown
	palette canvas.Palette
	now     func() time.Time

	mu       sync.RWMutex
	settings Settings
}

func NewService(store *canvas.Store, limiter *ratelimit.Cooldown, settings Settings) *Service {
	return &Service{
		store:    store,
		limiter:  limiter,
		palette:  canvas.Colors,
		now:      time.Now,
		settings: settings,
	}
}

func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *Service) Size() canvas.Dimensions {
	return s.store.Dimensions()
}

// PlacePixel writes color at (x, y) on behalf of identity. The cooldown is
// consumed before the pixel is validated, so a rejected write still counts.
func (s *Service) PlacePixel(ctx context.Context, identity string, p Pixel) error {
	settings := s.Settings()
	if !settings.Active {
		return ErrServiceInactive
	}
	if !s.limiter.Allow(identity, s.now(), settings.Cooldown) {
		return ErrRateLimited
	}

	index, ok := s.palette.Index(p.Color)
	if !ok {
		return fmt.Errorf("%w: %q", canvas.ErrInvalidColor, p.Color)
	}
	if err := s.store.WritePixel(ctx, p.X, p.Y, index); err != nil {
		return err
	}
	log.Printf("Pixel updated: x=%d, y=%d, color=%s, ip=%s", p.X, p.Y, p.Color, identity)
	return nil
}

// RetryAfter returns how long identity has to wait before its next write.
func (s *Service) RetryAfter(identity string) time.Duration {
	return s.limiter.Remaining(identity, s.now(), s.Settings().Cooldown)
}

func (s *Service) Canvas(ctx context.Context) (canvas.Dimensions, []uint8, error) {
	return s.store.Snapshot(ctx)
}

func (s *Service) Region(ctx context.Context, r canvas.Region) ([]uint8, error) {
	return s.store.ReadRegion(ctx, r)
}

// The operations below are admin only. privileged comes from the session
// layer; when it is false nothing is touched.

func (s *Service) Whiten(ctx context.Context, privileged bool, start, end canvas.Point) error {
	if !privileged {
		return ErrUnauthorized
	}
	r := canvas.RegionBetween(start, end)
	if err := s.store.Whiten(ctx, r); err != nil {
		return err
	}
	log.Printf("Region whitened: (%d,%d)-(%d,%d)", r.XMin, r.YMin, r.XMax, r.YMax)
	return nil
}

func (s *Service) Resize(ctx context.Context, privileged bool, width, height uint32) error {
	if !privileged {
		return ErrUnauthorized
	}
	if err := s.store.Resize(ctx, width, height); err != nil {
		return err
	}
	log.Printf("Canvas resized to %dx%d", width, height)
	return nil
}

func (s *Service) Reset(ctx context.Context, privileged bool, width, height uint32) error {
	if !privileged {
		return ErrUnauthorized
	}
	if err := s.store.Reset(ctx, width, height); err != nil {
		return err
	}
	log.Printf("Canvas reset to %dx%d", width, height)
	return nil
}

func (s *Service) SetCooldown(privileged bool, cooldown time.Duration) error {
	if !privileged {
		return ErrUnauthorized
	}
	if cooldown < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidCooldown, cooldown)
	}
	s.mu.Lock()
	s.settings.Cooldown = cooldown
	s.mu.Unlock()
	log.Printf("Cooldown set to %v", cooldown)
	return nil
}

// SetCooldownSeconds is SetCooldown for a value in whole seconds.
func (s *Service) SetCooldownSeconds(privileged bool, seconds int64) error {
	if !privileged {
		return ErrUnauthorized
	}
	cooldown, err := CooldownFromSeconds(seconds)
	if err != nil {
		return err
	}
	return s.SetCooldown(privileged, cooldown)
}

func (s *Service) SetActive(privileged bool, active bool) error {
	if !privileged {
		return ErrUnauthorized
	}
	s.mu.Lock()
	s.settings.Active = active
	s.mu.Unlock()
	log.Printf("Canvas active set to %t", active)
	return nil
}
