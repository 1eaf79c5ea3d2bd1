package mpris

import (
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/tbleher/niandra-go/internal/domain"
)

// parseMetadata maps an MPRIS Metadata dictionary onto a domain.Track. Every
// field is best-effort: a missing or malformed key is simply left at its
// zero value, it never causes the whole parse to fail.
func parseMetadata(metadata map[string]dbus.Variant) domain.Track {
	var t domain.Track

	if v, ok := metadata["xesam:title"]; ok {
		if s, ok := extractString(v); ok {
			t.Title = s
		}
	}

	if v, ok := metadata["xesam:artist"]; ok {
		if list, ok := extractStringList(v); ok && len(list) > 0 {
			t.Artist = list[0]
		} else if s, ok := extractString(v); ok {
			t.Artist = s
		}
	}

	if v, ok := metadata["xesam:album"]; ok {
		if s, ok := extractString(v); ok {
			t.Album = s
		}
	}

	if v, ok := metadata["mpris:length"]; ok {
		if n, ok := extractInt64(v); ok {
			t.DurationUs = n
		}
	}

	if v, ok := metadata["xesam:url"]; ok {
		if s, ok := extractString(v); ok {
			t.FilePath = s
		}
	}

	if v, ok := metadata["xesam:genre"]; ok {
		if list, ok := extractStringList(v); ok {
			t.Genre = strings.Join(list, ", ")
		}
	}

	if v, ok := metadata["xesam:albumArtist"]; ok {
		if list, ok := extractStringList(v); ok && len(list) > 0 {
			t.AlbumArtist = list[0]
		}
	}

	if v, ok := metadata["xesam:trackNumber"]; ok {
		if n, ok := extractInt32(v); ok {
			t.TrackNumber = n
		}
	}

	if v, ok := metadata["xesam:discNumber"]; ok {
		if n, ok := extractInt32(v); ok {
			t.DiscNumber = n
		}
	}

	if v, ok := metadata["xesam:contentCreated"]; ok {
		if s, ok := extractString(v); ok {
			t.ReleaseDate = s
		}
	}

	if v, ok := metadata["mpris:artUrl"]; ok {
		if s, ok := extractString(v); ok {
			t.ArtURL = s
		}
	}

	if v, ok := metadata["xesam:userRating"]; ok {
		if f, ok := extractFloat64(v); ok {
			t.UserRating = f
			t.UserRatingKnown = true
		}
	}

	if v, ok := metadata["xesam:audioBPM"]; ok {
		if n, ok := extractInt32(v); ok {
			t.BPM = n
			t.BPMKnown = true
		}
	}

	if v, ok := metadata["xesam:composer"]; ok {
		if list, ok := extractStringList(v); ok {
			t.Composer = strings.Join(list, ", ")
		}
	}

	if v, ok := metadata["xesam:musicBrainzTrackID"]; ok {
		if s, ok := extractString(v); ok {
			t.MusicBrainzTrackID = s
		}
	}

	return t
}

// parsePlaybackStatus maps the MPRIS PlaybackStatus string onto
// domain.PlayerStatus, defaulting to Stopped for anything unrecognized.
func parsePlaybackStatus(status string) domain.PlayerStatus {
	switch status {
	case string(domain.StatusPlaying):
		return domain.StatusPlaying
	case string(domain.StatusPaused):
		return domain.StatusPaused
	default:
		return domain.StatusStopped
	}
}
