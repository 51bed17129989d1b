package youtube

import "net/url"

// ExtractVideoID returns the first "v" query value of a youtube.com watch URL.
// Any other URL, including youtu.be short links, yields "".
func ExtractVideoID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	switch u.Hostname() {
	case "www.youtube.com", "youtube.com":
	default:
		return ""
	}
	if ids := u.Query()["v"]; len(ids) > 0 {
		return ids[0]
	}
	return ""
}

