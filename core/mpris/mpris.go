// Package mpris exports the player on the desktop session bus as an
// org.mpris.MediaPlayer2 service, so system media keys and desktop
// now-playing widgets drive the controller. The bridge is strictly
// one-directional: host transport buttons invoke controller methods,
// and the controller publishes metadata back; nothing else flows.
package mpris

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	"CadenzaFM/core/player"
	"CadenzaFM/logger"
	"CadenzaFM/model"
)

const (
	busName     = "org.mpris.MediaPlayer2.cadenzafm"
	objectPath  = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	rootIface   = "org.mpris.MediaPlayer2"
	playerIface = "org.mpris.MediaPlayer2.Player"
)

// Bridge is the live MPRIS registration. It implements
// player.MediaBridge.
type Bridge struct {
	conn  *dbus.Conn
	props *prop.Properties
	ctrl  *player.Controller
}

// rootHandler serves the org.mpris.MediaPlayer2 methods. The player
// has no window to raise and is not quittable over the bus.
type rootHandler struct{}

func (rootHandler) Raise() *dbus.Error { return nil }
func (rootHandler) Quit() *dbus.Error  { return nil }

// transportHandler maps MPRIS transport methods onto the controller.
type transportHandler struct {
	ctrl *player.Controller
}

func (h transportHandler) Play() *dbus.Error {
	h.ctrl.Play()
	return nil
}

func (h transportHandler) Pause() *dbus.Error {
	h.ctrl.Pause()
	return nil
}

func (h transportHandler) PlayPause() *dbus.Error {
	h.ctrl.TogglePlay()
	return nil
}

func (h transportHandler) Stop() *dbus.Error {
	h.ctrl.Pause()
	return nil
}

func (h transportHandler) Next() *dbus.Error {
	h.ctrl.Next()
	return nil
}

func (h transportHandler) Previous() *dbus.Error {
	h.ctrl.Previous()
	return nil
}

// Start claims the bus name and exports the service. A missing session
// bus is an environment without a desktop; callers treat the error as
// "no bridge" and carry on.
func Start(ctrl *player.Controller) (*Bridge, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	reply, err := conn.RequestName(busName, dbus.NameFlagReplaceExisting)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name %s already taken", busName)
	}

	if err := conn.Export(rootHandler{}, objectPath, rootIface); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export root interface: %w", err)
	}
	if err := conn.Export(transportHandler{ctrl: ctrl}, objectPath, playerIface); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export player interface: %w", err)
	}

	propsSpec := map[string]map[string]*prop.Prop{
		rootIface: {
			"Identity":            {Value: "CadenzaFM", Writable: false, Emit: prop.EmitTrue},
			"CanQuit":             {Value: false, Writable: false, Emit: prop.EmitTrue},
			"CanRaise":            {Value: false, Writable: false, Emit: prop.EmitTrue},
			"HasTrackList":        {Value: false, Writable: false, Emit: prop.EmitTrue},
			"SupportedUriSchemes": {Value: []string{}, Writable: false, Emit: prop.EmitTrue},
			"SupportedMimeTypes":  {Value: []string{"audio/mpeg"}, Writable: false, Emit: prop.EmitTrue},
		},
		playerIface: {
			"PlaybackStatus": {Value: "Stopped", Writable: false, Emit: prop.EmitTrue},
			"Metadata":       {Value: map[string]dbus.Variant{}, Writable: false, Emit: prop.EmitTrue},
			"CanPlay":        {Value: true, Writable: false, Emit: prop.EmitTrue},
			"CanPause":       {Value: true, Writable: false, Emit: prop.EmitTrue},
			"CanGoNext":      {Value: true, Writable: false, Emit: prop.EmitTrue},
			"CanGoPrevious":  {Value: true, Writable: false, Emit: prop.EmitTrue},
			"CanSeek":        {Value: false, Writable: false, Emit: prop.EmitTrue},
			"CanControl":     {Value: true, Writable: false, Emit: prop.EmitTrue},
		},
	}

	props, err := prop.Export(conn, objectPath, propsSpec)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export properties: %w", err)
	}

	bridge := &Bridge{conn: conn, props: props, ctrl: ctrl}
	ctrl.SetBridge(bridge)
	logger.Info("mpris bridge registered", logger.String("busName", busName))
	return bridge, nil
}

// Publish pushes the current track metadata and play state onto the
// bus. Called by the controller on every track or play-state change.
func (b *Bridge) Publish(track *model.Track, playing bool) {
	status := "Stopped"
	metadata := map[string]dbus.Variant{}

	if track != nil {
		if playing {
			status = "Playing"
		} else {
			status = "Paused"
		}
		metadata = map[string]dbus.Variant{
			"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath("/com/cadenzafm/track/" + sanitizeTrackID(track.ID))),
			"xesam:title":   dbus.MakeVariant(track.Title),
			"xesam:artist":  dbus.MakeVariant([]string{track.Artist}),
			"xesam:album":   dbus.MakeVariant(track.Album),
		}
		if track.CoverArtURL != "" {
			metadata["mpris:artUrl"] = dbus.MakeVariant(track.CoverArtURL)
		}
		if track.Duration > 0 {
			metadata["mpris:length"] = dbus.MakeVariant(int64(track.Duration * 1e6))
		}
	}

	b.props.SetMust(playerIface, "PlaybackStatus", status)
	b.props.SetMust(playerIface, "Metadata", metadata)
}

// Close releases the bus name and connection.
func (b *Bridge) Close() {
	if b.conn != nil {
		if _, err := b.conn.ReleaseName(busName); err != nil {
			logger.Warn("failed to release bus name", logger.ErrorField(err))
		}
		b.conn.Close()
	}
}

// sanitizeTrackID keeps the trackid a valid dbus object path element.
func sanitizeTrackID(id string) string {
	out := make([]byte, 0, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
