package domain

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var mainTagPattern = regexp.MustCompile(
	`^(?:((?:https?://)?[a-zA-Z\d.-]+(?::\d+)?)/)?([\w./-]+/[\w.-]+)(?::([\w.-]+))?$`,
)

// MainTag is the canonical reference of an image:
// [host[:port]/]namespace/repository[:tag].
type MainTag struct {
	Scheme     string
	Host       string
	Port       int
	Repository string
	Tag        string
}

// ParseMainTag parses the string form of a MainTag.
func ParseMainTag(s string) (MainTag, error) {
	m := mainTagPattern.FindStringSubmatch(s)
	if m == nil {
		return MainTag{}, &InvalidTagFormatError{Value: s}
	}
	t := MainTag{Repository: m[2], Tag: m[3]}
	if m[1] != "" {
		host := m[1]
		if scheme, rest, ok := strings.Cut(host, "://"); ok {
			t.Scheme = scheme
			host = rest
		}
		if h, p, ok := strings.Cut(host, ":"); ok {
			port, err := strconv.Atoi(p)
			if err != nil {
				return MainTag{}, &InvalidTagFormatError{Value: s}
			}
			host, t.Port = h, port
		}
		t.Host = host
	}
	return t, nil
}

// NewMainTag builds the reference of a repository hosted on the registry at
// registryURL. The URL may omit its scheme. The result is canonical: it
// carries no scheme and no default port, so it survives String and
// ParseMainTag unchanged.
func NewMainTag(registryURL, repository, tag string) (MainTag, error) {
	t := MainTag{Repository: repository, Tag: tag}
	if registryURL == "" {
		return t, nil
	}
	if !strings.Contains(registryURL, "://") {
		registryURL = "https://" + registryURL
	}
	u, err := url.Parse(registryURL)
	if err != nil || u.Hostname() == "" {
		return MainTag{}, &InvalidTagFormatError{Value: registryURL}
	}
	t.Host = u.Hostname()
	if p := u.Port(); p != "" {
		if t.Port, err = strconv.Atoi(p); err != nil {
			return MainTag{}, &InvalidTagFormatError{Value: registryURL}
		}
	}
	if isDefaultPort(t.Port) {
		t.Port = 0
	}
	return t, nil
}

// String serializes the tag. Default HTTP(S) ports are omitted.
func (t MainTag) String() string {
	var b strings.Builder
	if t.Host != "" {
		b.WriteString(t.Host)
		if t.Port != 0 && !isDefaultPort(t.Port) {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(t.Port))
		}
		b.WriteByte('/')
	}
	b.WriteString(t.Repository)
	if t.Tag != "" {
		b.WriteByte(':')
		b.WriteString(t.Tag)
	}
	return b.String()
}

func isDefaultPort(port int) bool {
	return port == 80 || port == 443
}

// WithTag returns a copy of t pointing at tag.
func (t MainTag) WithTag(tag string) MainTag {
	t.Tag = tag
	return t
}

// SameImage reports whether both references name the same repository on the
// same registry, ignoring tags and default ports.
func (t MainTag) SameImage(o MainTag) bool {
	return t.WithTag("").String() == o.WithTag("").String()
}

func (t MainTag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *MainTag) UnmarshalText(text []byte) error {
	parsed, err := ParseMainTag(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
