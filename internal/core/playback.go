package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"aidj/internal/i18n"
	"aidj/internal/processlog"
)

const repeatOff = "off"

// Player issues playback commands against the catalog's player.
type Player struct {
	catalog   CatalogClient
	config    *DJConfig
	trail     *processlog.Buffer
	localizer *i18n.Localizer
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error

	mu           sync.RWMutex
	pinnedDevice string

	lifetime   context.Context
	stop       context.CancelFunc
	background sync.WaitGroup
}

func NewPlayer(catalog CatalogClient, config *DJConfig, trail *processlog.Buffer,
	localizer *i18n.Localizer, logger *zap.Logger) *Player {
	lifetime, stop := context.WithCancel(context.Background())
	return &Player{
		catalog:   catalog,
		config:    config,
		trail:     trail,
		localizer: localizer,
		logger:    logger,
		sleep:     sleepContext,
		lifetime:  lifetime,
		stop:      stop,
	}
}

// PinnedDevice returns the device playback is pinned to, if any.
func (p *Player) PinnedDevice() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pinnedDevice
}

// PinDevice makes deviceID the target of every following play command and
// moves the current playback there. A failed transfer is only logged.
func (p *Player) PinDevice(ctx context.Context, deviceID string) {
	p.mu.Lock()
	p.pinnedDevice = deviceID
	p.mu.Unlock()

	if deviceID == "" {
		return
	}

	p.logger.Info("Active device pinned", zap.String("device_id", deviceID))
	if err := p.catalog.TransferPlayback(ctx, deviceID); err != nil {
		p.logger.Warn("Failed to transfer playback", zap.String("device_id", deviceID), zap.Error(err))
	}
}

// ResolveDevice returns the pinned device or polls the device list, preferring
// the active device and falling back to the first one listed.
func (p *Player) ResolveDevice(ctx context.Context) (string, error) {
	if pinned := p.PinnedDevice(); pinned != "" {
		return pinned, nil
	}

	attempts := max(p.config.DeviceAttempts, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		devices, err := p.catalog.GetDevices(ctx)
		if err != nil {
			p.logger.Warn("Failed to list devices", zap.Int("attempt", attempt), zap.Error(err))
		} else if device := pickDevice(devices); device != nil {
			return device.ID, nil
		}

		if attempt < attempts {
			p.trail.Addf("⏳ Waiting for a playback device (%d/%d)", attempt, attempts)
			if err := p.sleep(ctx, p.config.DeviceRetryDelay); err != nil {
				return "", err
			}
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNoDevice, p.localizer.T("error.device.none"))
}

func pickDevice(devices []Device) *Device {
	for i := range devices {
		if devices[i].IsActive && devices[i].ID != "" {
			return &devices[i]
		}
	}
	for i := range devices {
		if devices[i].ID != "" {
			return &devices[i]
		}
	}
	return nil
}

// Play starts tracks in order on the resolved device. Shuffle is switched off
// first so the first track really plays first; repeat is switched off shortly
// afterwards in the background.
func (p *Player) Play(ctx context.Context, tracks []Track) error {
	if len(tracks) == 0 {
		return nil
	}

	deviceID, err := p.ResolveDevice(ctx)
	if err != nil {
		return err
	}

	if err := p.catalog.SetShuffle(ctx, deviceID, false); err != nil {
		p.logger.Warn("Failed to disable shuffle", zap.String("device_id", deviceID), zap.Error(err))
	}

	if err := p.catalog.Play(ctx, deviceID, TrackURIs(tracks)); err != nil {
		return fmt.Errorf("failed to start playback on device %s: %w", deviceID, err)
	}
	p.trail.Addf("🎶 Playing %d tracks, starting with %s (%s)",
		len(tracks), tracks[0].Name, tracks[0].PrimaryArtist())

	p.disableRepeatLater(deviceID)
	return nil
}

// disableRepeatLater outlives the Play call but not the player: Close cancels
// the pending command.
func (p *Player) disableRepeatLater(deviceID string) {
	p.background.Add(1)
	go func() {
		defer p.background.Done()

		if err := p.sleep(p.lifetime, p.config.RepeatOffDelay); err != nil {
			return
		}
		if err := p.catalog.SetRepeat(p.lifetime, deviceID, repeatOff); err != nil {
			p.logger.Debug("Failed to disable repeat", zap.String("device_id", deviceID), zap.Error(err))
		}
	}()
}

// Wait blocks until background player work has finished.
func (p *Player) Wait() {
	p.background.Wait()
}

// Close cancels pending background commands and waits for them to return.
func (p *Player) Close() {
	p.stop()
	p.background.Wait()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsNoDevice reports whether err was caused by a missing playback device.
func IsNoDevice(err error) bool {
	return errors.Is(err, ErrNoDevice)
}
