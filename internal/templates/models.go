package templates

import "time"

// SettingKey is the settings row that holds the active certificate template.
const SettingKey = "certificate_template"

// Kind tags the stored form of a template.
type Kind string

const (
	KindInline   Kind = "inline"
	KindFilePath Kind = "file_path"
	KindObject   Kind = "object"
)

// Source is the active template: one of FilePath, InlineBlob or ObjectKey.
type Source interface {
	Kind() Kind
}

// FilePath references a template file relative to the template directory.
type FilePath struct {
	Path string
}

// InlineBlob holds template bytes stored directly in the database.
type InlineBlob struct {
	Data []byte
}

// ObjectKey references a template object in the configured bucket.
type ObjectKey struct {
	Key string
}

func (FilePath) Kind() Kind   { return KindFilePath }
func (InlineBlob) Kind() Kind { return KindInline }
func (ObjectKey) Kind() Kind  { return KindObject }

// Setting is a key/value row. Only SettingKey is used today.
type Setting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Kind      Kind      `gorm:"not null" json:"kind"`
	Value     string    `json:"value"`
	Data      []byte    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Description is the admin view of the active template.
type Description struct {
	Configured  bool       `json:"configured"`
	Kind        Kind       `json:"kind,omitempty"`
	Path        string     `json:"path,omitempty"`
	Key         string     `json:"key,omitempty"`
	Size        int        `json:"size,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	DownloadURL string     `json:"download_url,omitempty"`
}

func (s *Setting) source() Source {
	switch s.Kind {
	case KindInline:
		return InlineBlob{Data: s.Data}
	case KindFilePath:
		return FilePath{Path: s.Value}
	case KindObject:
		return ObjectKey{Key: s.Value}
	}
	return nil
}

func settingFromSource(src Source) *Setting {
	setting := &Setting{Key: SettingKey, Kind: src.Kind()}
	switch v := src.(type) {
	case InlineBlob:
		setting.Data = v.Data
	case FilePath:
		setting.Value = v.Path
	case ObjectKey:
		setting.Value = v.Key
	}
	return setting
}
