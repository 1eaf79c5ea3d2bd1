package mpris

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

// TestParseMetadataAllFields verifies every recognized MPRIS key lands on
// the corresponding domain.Track field, with no loss across the parse.
func TestParseMetadataAllFields(t *testing.T) {
	metadata := map[string]dbus.Variant{
		"xesam:title":             dbus.MakeVariant("Song Title"),
		"xesam:artist":            dbus.MakeVariant([]string{"Artist One", "Artist Two"}),
		"xesam:album":             dbus.MakeVariant("Album Name"),
		"mpris:length":            dbus.MakeVariant(int64(180000000)),
		"xesam:url":               dbus.MakeVariant("file:///music/song.flac"),
		"xesam:genre":             dbus.MakeVariant([]string{"Rock", "Blues"}),
		"xesam:albumArtist":       dbus.MakeVariant([]string{"Album Artist"}),
		"xesam:trackNumber":       dbus.MakeVariant(int32(7)),
		"xesam:discNumber":        dbus.MakeVariant(int32(1)),
		"xesam:contentCreated":    dbus.MakeVariant("2020-01-01"),
		"mpris:artUrl":            dbus.MakeVariant("file:///music/art.jpg"),
		"xesam:userRating":        dbus.MakeVariant(0.8),
		"xesam:audioBPM":          dbus.MakeVariant(int32(120)),
		"xesam:composer":          dbus.MakeVariant([]string{"Composer Name"}),
		"xesam:musicBrainzTrackID": dbus.MakeVariant("mbid-1234"),
	}

	got := parseMetadata(metadata)

	if got.Title != "Song Title" {
		t.Errorf("Title = %q, want %q", got.Title, "Song Title")
	}
	if got.Artist != "Artist One" {
		t.Errorf("Artist = %q, want first of list", got.Artist)
	}
	if got.Album != "Album Name" {
		t.Errorf("Album = %q", got.Album)
	}
	if got.DurationUs != 180000000 {
		t.Errorf("DurationUs = %d, want 180000000", got.DurationUs)
	}
	if got.FilePath != "file:///music/song.flac" {
		t.Errorf("FilePath = %q", got.FilePath)
	}
	if got.Genre != "Rock, Blues" {
		t.Errorf("Genre = %q, want joined list", got.Genre)
	}
	if got.AlbumArtist != "Album Artist" {
		t.Errorf("AlbumArtist = %q", got.AlbumArtist)
	}
	if got.TrackNumber != 7 {
		t.Errorf("TrackNumber = %d", got.TrackNumber)
	}
	if got.DiscNumber != 1 {
		t.Errorf("DiscNumber = %d", got.DiscNumber)
	}
	if got.ReleaseDate != "2020-01-01" {
		t.Errorf("ReleaseDate = %q", got.ReleaseDate)
	}
	if got.ArtURL != "file:///music/art.jpg" {
		t.Errorf("ArtURL = %q", got.ArtURL)
	}
	if !got.UserRatingKnown || got.UserRating != 0.8 {
		t.Errorf("UserRating = (%v, known=%v), want (0.8, true)", got.UserRating, got.UserRatingKnown)
	}
	if !got.BPMKnown || got.BPM != 120 {
		t.Errorf("BPM = (%v, known=%v), want (120, true)", got.BPM, got.BPMKnown)
	}
	if got.Composer != "Composer Name" {
		t.Errorf("Composer = %q", got.Composer)
	}
	if got.MusicBrainzTrackID != "mbid-1234" {
		t.Errorf("MusicBrainzTrackID = %q", got.MusicBrainzTrackID)
	}
}

// TestParseMetadataEmpty verifies a missing key leaves the field at its
// zero value rather than failing the whole parse.
func TestParseMetadataEmpty(t *testing.T) {
	got := parseMetadata(map[string]dbus.Variant{})

	if got.Title != "" || got.UserRatingKnown || got.BPMKnown {
		t.Errorf("parseMetadata({}) should be all zero values, got %+v", got)
	}
}

// TestParseMetadataArtistFallsBackToBareString covers non-compliant
// players that send xesam:artist as a plain string instead of "as".
func TestParseMetadataArtistFallsBackToBareString(t *testing.T) {
	got := parseMetadata(map[string]dbus.Variant{
		"xesam:artist": dbus.MakeVariant("Solo Artist"),
	})
	if got.Artist != "Solo Artist" {
		t.Errorf("Artist = %q, want %q", got.Artist, "Solo Artist")
	}
}

func TestParsePlaybackStatus(t *testing.T) {
	if got := parsePlaybackStatus("Playing"); got != "Playing" {
		t.Errorf("parsePlaybackStatus(Playing) = %v", got)
	}
	if got := parsePlaybackStatus("Paused"); got != "Paused" {
		t.Errorf("parsePlaybackStatus(Paused) = %v", got)
	}
	if got := parsePlaybackStatus("Stopped"); got != "Stopped" {
		t.Errorf("parsePlaybackStatus(Stopped) = %v", got)
	}
	if got := parsePlaybackStatus("Garbage"); got != "Stopped" {
		t.Errorf("parsePlaybackStatus(unknown) = %v, want Stopped fallback", got)
	}
}
