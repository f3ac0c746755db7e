// Package credentials builds and parses sink credentials.
package credentials

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// LinkPrefix is the fixed start of a credentials link.
const LinkPrefix = "https://stigning.se/ofeed"

var (
	ErrLinkPrefix      = errors.New("credentials link must start with " + LinkPrefix)
	ErrServerMissing   = errors.New("server url is not specified")
	ErrServerNotHTTPS  = errors.New("server url must use https")
	ErrEventIDMissing  = errors.New("event id is missing")
	ErrPasswordMissing = errors.New("password is missing")
)

// Sink holds what is needed to authenticate against the sink.
type Sink struct {
	URL      string
	EventID  string
	Password string
}

// BasicAuthorization returns the value of the Authorization header for
// eventID and password.
func BasicAuthorization(eventID, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(eventID+":"+password))
}

// ParseLink reads a link of the form
// https://stigning.se/ofeed?url=<server>&auth=basic&id=<event id>&pwd=<password>.
// The auth parameter is ignored.
func ParseLink(link string) (Sink, error) {
	if !strings.HasPrefix(link, LinkPrefix) {
		return Sink{}, ErrLinkPrefix
	}

	u, err := url.Parse(link)
	if err != nil {
		return Sink{}, errors.Wrap(err, "failed to parse credentials link")
	}
	q := u.Query()

	server := q.Get("url")
	if server == "" {
		return Sink{}, ErrServerMissing
	}
	if !strings.HasPrefix(strings.ToLower(server), "https://") {
		return Sink{}, ErrServerNotHTTPS
	}

	id := q.Get("id")
	if id == "" {
		return Sink{}, ErrEventIDMissing
	}

	pwd := q.Get("pwd")
	if pwd == "" {
		return Sink{}, ErrPasswordMissing
	}

	return Sink{URL: server, EventID: id, Password: pwd}, nil
}
