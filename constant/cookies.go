package constant

// CookieFileHeader is written verbatim at the top of every persisted cookie file,
// followed by one blank line. The downloader tool expects this layout.
var CookieFileHeader = []string{
	"# Netscape HTTP Cookie File",
	"# https://curl.se/docs/http-cookies.html",
	"# This file was generated by OffTube! Edit at your own risk.",
}

// File extensions of stored artifacts.
const (
	VideoExt     = ".mp4"
	ThumbnailExt = ".jpg"
)
