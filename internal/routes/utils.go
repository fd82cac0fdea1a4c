package routes

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"html"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// sriCache caches computed SRI integrity strings keyed by the asset path.
var sriCache sync.Map // map[string]string

// computeLocalSRI computes the sha384 SRI for a local asset. Only URLs
// under /assets/ are local, they map to web/assets/ on disk. Anything
// else, CDN scripts included, returns empty.
func computeLocalSRI(src string) (string, error) {
	if !strings.HasPrefix(src, "/assets/") {
		return "", nil
	}

	fsPath := filepath.Join("web", strings.TrimPrefix(src, "/"))

	f, err := os.Open(fsPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha512.New384()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return "sha384-" + base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

func assetIntegrity(src string) string {
	if v, ok := sriCache.Load(src); ok {
		return v.(string)
	}
	sri, err := computeLocalSRI(src)
	if err != nil || sri == "" {
		return ""
	}
	sriCache.Store(src, sri)
	return sri
}

// sriAttrs renders the integrity attributes for a local asset, empty for
// anything we cannot hash.
func sriAttrs(src string) string {
	integrity := assetIntegrity(src)
	if integrity == "" {
		return ""
	}
	return fmt.Sprintf(" integrity=\"%s\" crossorigin=\"anonymous\"", html.EscapeString(integrity))
}

// ScriptTag returns a safe HTML script tag for use in html/templates,
// with the SRI integrity hash filled in for local assets.
func ScriptTag(src string) template.HTML {
	tag := fmt.Sprintf("<script src=\"%s\"%s></script>", html.EscapeString(src), sriAttrs(src))
	return template.HTML(tag)
}

// StyleTag is ScriptTag for stylesheets.
func StyleTag(href string) template.HTML {
	tag := fmt.Sprintf("<link rel=\"stylesheet\" href=\"%s\"%s>", html.EscapeString(href), sriAttrs(href))
	return template.HTML(tag)
}

// TemplateFuncs returns the template helpers available to page templates.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"script_tag": ScriptTag,
		"style_tag":  StyleTag,
	}
}
