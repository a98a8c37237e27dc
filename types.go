package photoblog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
)

// Post is one record of the metadata store. Fields the tooling does not know
// about are kept in Extra and written back unchanged, in their original order.
type Post struct {
	Title     string
	Published string // DD-MM-YYYY
	Image     string // canonical, watermarked asset
	Link      string // rendered post page
	HasMap    bool
	Thumb     string // second-largest variant
	Hero      string // largest variant
	Extra     map[string]json.RawMessage

	keys   []string
	nulls  map[string]bool // known keys stored as null
	loaded bool
}

// Document is the whole metadata store: a top-level object with a posts list.
type Document struct {
	Posts []Post
	Extra map[string]json.RawMessage

	keys []string
}

// PublishedLayout is the time layout of Post.Published.
const PublishedLayout = "02-01-2006"

var postKeys = []string{"title", "published", "image", "link", "hasMap", "thumb", "hero"}

// FindSlug returns the index of the first post whose canonical image
// slugifies to slug, or -1.
func (d *Document) FindSlug(slug string) int {
	for i, p := range d.Posts {
		if p.Image == "" {
			continue
		}
		if Slugify(p.Image) == slug {
			return i
		}
	}
	return -1
}

// Insert places p at the front of the list.
func (d *Document) Insert(p Post) {
	d.Posts = append([]Post{p}, d.Posts...)
}

// Remove deletes the post at index i.
func (d *Document) Remove(i int) {
	d.Posts = append(d.Posts[:i], d.Posts[i+1:]...)
}

// UnmarshalJSON decodes a post, remembering key order.
func (p *Post) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}
	*p = Post{keys: obj.keys, loaded: true}
	for _, k := range obj.keys {
		raw := obj.raw[k]
		if slices.Contains(postKeys, k) && isNull(raw) {
			if p.nulls == nil {
				p.nulls = make(map[string]bool)
			}
			p.nulls[k] = true
			continue
		}
		var err error
		switch k {
		case "title":
			err = decodeString(raw, &p.Title)
		case "published":
			err = decodeString(raw, &p.Published)
		case "image":
			err = decodeString(raw, &p.Image)
		case "link":
			err = decodeString(raw, &p.Link)
		case "thumb":
			err = decodeString(raw, &p.Thumb)
		case "hero":
			err = decodeString(raw, &p.Hero)
		case "hasMap":
			err = json.Unmarshal(raw, &p.HasMap)
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]json.RawMessage)
			}
			p.Extra[k] = raw
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
	}
	return nil
}

// MarshalJSON writes known keys in their original order, then any newly set
// fields in canonical order, then new extras sorted by name. A key that was
// null on load stays null while its field is unset. Posts built in code
// always carry hasMap; loaded posts only when they had it or it became true.
func (p Post) MarshalJSON() ([]byte, error) {
	keys := append([]string(nil), p.keys...)
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for _, k := range postKeys {
		if !seen[k] && (!p.isZero(k) || (k == "hasMap" && !p.loaded)) {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var extra []string
	for k := range p.Extra {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	return encodeObject(keys, func(k string) (any, bool) {
		if p.nulls[k] && p.isZero(k) {
			return json.RawMessage("null"), true
		}
		switch k {
		case "title":
			return p.Title, true
		case "published":
			return p.Published, true
		case "image":
			return p.Image, true
		case "link":
			return p.Link, true
		case "hasMap":
			return p.HasMap, true
		case "thumb":
			return p.Thumb, true
		case "hero":
			return p.Hero, true
		}
		raw, ok := p.Extra[k]
		return raw, ok
	})
}

func (p Post) isZero(k string) bool {
	switch k {
	case "title":
		return p.Title == ""
	case "published":
		return p.Published == ""
	case "image":
		return p.Image == ""
	case "link":
		return p.Link == ""
	case "hasMap":
		return !p.HasMap
	case "thumb":
		return p.Thumb == ""
	case "hero":
		return p.Hero == ""
	}
	return true
}

// UnmarshalJSON requires a top-level object with a posts array.
func (d *Document) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}
	raw, ok := obj.raw["posts"]
	if !ok {
		return fmt.Errorf("no top-level %q list", "posts")
	}
	if t := firstByte(raw); t != '[' {
		return fmt.Errorf("top-level %q is not a list", "posts")
	}
	*d = Document{keys: obj.keys}
	if err := json.Unmarshal(raw, &d.Posts); err != nil {
		return fmt.Errorf("posts: %w", err)
	}
	for _, k := range obj.keys {
		if k == "posts" {
			continue
		}
		if d.Extra == nil {
			d.Extra = make(map[string]json.RawMessage)
		}
		d.Extra[k] = obj.raw[k]
	}
	return nil
}

// MarshalJSON writes the document preserving top-level key order.
func (d Document) MarshalJSON() ([]byte, error) {
	keys := append([]string(nil), d.keys...)
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	if !seen["posts"] {
		keys = append(keys, "posts")
	}
	var extra []string
	for k := range d.Extra {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	posts := d.Posts
	if posts == nil {
		posts = []Post{}
	}
	return encodeObject(keys, func(k string) (any, bool) {
		if k == "posts" {
			return posts, true
		}
		raw, ok := d.Extra[k]
		return raw, ok
	})
}

type object struct {
	keys []string
	raw  map[string]json.RawMessage
}

func decodeObject(data []byte) (object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return object{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return object{}, fmt.Errorf("expected a JSON object")
	}
	obj := object{raw: make(map[string]json.RawMessage)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return object{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return object{}, fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return object{}, err
		}
		if _, dup := obj.raw[key]; !dup {
			obj.keys = append(obj.keys, key)
		}
		obj.raw[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return object{}, err
	}
	return obj, nil
}

func encodeObject(keys []string, value func(string) (any, bool)) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	for _, k := range keys {
		v, ok := value(k)
		if !ok {
			continue
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
		kb, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalNoEscape(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalNoEscape is json.Marshal without HTML escaping, so titles and paths
// containing & or < stay readable in the store.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func decodeString(raw json.RawMessage, dst *string) error {
	if isNull(raw) {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func firstByte(raw json.RawMessage) byte {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}
