package sessionlog

import (
	"fmt"
	"strings"

	"github.com/desertthunder/syncx/internal/shared"
)

// Service names one remote service with its own session log.
type Service string

const (
	YouTube     Service = "youtube"
	Sheets      Service = "sheets"
	LastFM      Service = "lastfm"
	Discogs     Service = "discogs"
	MusicBrainz Service = "musicbrainz"
	MailTM      Service = "mailtm"
)

// Services lists every known service in display order.
var Services = []Service{YouTube, Sheets, LastFM, Discogs, MusicBrainz, MailTM}

// ParseService matches s case-insensitively against the known services.
func ParseService(s string) (Service, error) {
	name := Service(strings.ToLower(strings.TrimSpace(s)))
	for _, svc := range Services {
		if svc == name {
			return svc, nil
		}
	}
	return "", fmt.Errorf("%w: %q", shared.ErrUnknownService, s)
}

func (s Service) String() string { return string(s) }
