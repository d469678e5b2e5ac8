package types

import (
	"bytes"
	"encoding/json"
	"strings"

	"cosmossdk.io/errors"
	"github.com/holiman/uint256"
)

// StorageItem is one declared state variable as emitted by the compiler storage layout.
type StorageItem struct {
	AstID    *int64 `json:"astId,omitempty"`
	Contract string `json:"contract"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Slot     string `json:"slot"`
	Offset   uint64 `json:"offset"`
	Src      string `json:"src,omitempty"`
}

// Key identifies the item across ancestors that declare variables with the same name.
func (i StorageItem) Key() string {
	return i.Contract + ":" + i.Label
}

// ParsedSlot returns the declared slot as a 256-bit value.
func (i StorageItem) ParsedSlot() (Slot, error) {
	s, err := ParseSlot(i.Slot)
	if err != nil {
		return Slot{}, errors.Wrapf(err, "item %s", i.Key())
	}
	return s, nil
}

// TypeInfo is an entry of the shared type table.
type TypeInfo struct {
	Label         string          `json:"label"`
	NumberOfBytes string          `json:"numberOfBytes"`
	Encoding      string          `json:"encoding,omitempty"`
	Base          string          `json:"base,omitempty"`
	Key           string          `json:"key,omitempty"`
	Value         string          `json:"value,omitempty"`
	Members       json.RawMessage `json:"members,omitempty"`
}

// Bytes returns the byte width of the type.
func (t TypeInfo) Bytes() (uint64, error) {
	var n uint256.Int
	if err := n.SetFromDecimal(strings.TrimSpace(t.NumberOfBytes)); err != nil {
		return 0, errors.Wrapf(ErrInvalidStorageItem, "type %s: numberOfBytes %q: %s", t.Label, t.NumberOfBytes, err.Error())
	}

	if !n.IsUint64() {
		return 0, errors.Wrapf(ErrInvalidStorageItem, "type %s: numberOfBytes %s is too large", t.Label, t.NumberOfBytes)
	}

	return n.Uint64(), nil
}

// TypeTable maps type keys to their descriptions.
type TypeTable map[string]TypeInfo

// Lookup returns the type registered under key.
func (t TypeTable) Lookup(key string) (TypeInfo, error) {
	info, ok := t[key]
	if !ok {
		return TypeInfo{}, errors.Wrapf(ErrMissingType, "type %q", key)
	}
	return info, nil
}

// StorageLayout is one analyzed contract: its root storage, the shared type table and
// the storage of every ERC-7201 namespace it declares.
type StorageLayout struct {
	Storage     []StorageItem `json:"storage"`
	Types       TypeTable     `json:"types"`
	BaseSlot    string        `json:"baseSlot,omitempty"`
	Namespaces  Namespaces    `json:"namespaces,omitempty"`
	SolcVersion string        `json:"solcVersion,omitempty"`
}

// Validate checks the fields that the reconstruction cannot work without.
func (l *StorageLayout) Validate() error {
	if l == nil {
		return errors.Wrap(ErrInvalidLayout, "layout is nil")
	}

	if l.Types == nil && (len(l.Storage) > 0 || len(l.Namespaces) > 0) {
		return errors.Wrap(ErrInvalidLayout, "type table is missing")
	}

	if l.BaseSlot != "" {
		if _, err := ParseBaseSlot(l.BaseSlot); err != nil {
			return err
		}
	}

	return nil
}

// Namespace is the storage of one namespaced region.
type Namespace struct {
	ID    string
	Items []StorageItem
}

// Namespaces is an ordered mapping from namespace key to its storage items. The JSON form
// is an object; decoding keeps the document order of its keys.
type Namespaces []Namespace

// Get returns the items of the namespace with the given key.
func (n Namespaces) Get(id string) ([]StorageItem, bool) {
	for _, ns := range n {
		if ns.ID == id {
			return ns.Items, true
		}
	}
	return nil, false
}

// Keys returns the namespace keys in order.
func (n Namespaces) Keys() []string {
	keys := make([]string, 0, len(n))
	for _, ns := range n {
		keys = append(keys, ns.ID)
	}
	return keys
}

// Set replaces the items of an existing namespace or appends a new one.
func (n *Namespaces) Set(id string, items []StorageItem) {
	for i := range *n {
		if (*n)[i].ID == id {
			(*n)[i].Items = items
			return
		}
	}
	*n = append(*n, Namespace{ID: id, Items: items})
}

func (n Namespaces) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, ns := range n {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(ns.ID)
		if err != nil {
			return nil, err
		}

		items := ns.Items
		if items == nil {
			items = []StorageItem{}
		}

		value, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (n *Namespaces) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if tok == nil {
		*n = nil
		return nil
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.Wrapf(ErrInvalidLayout, "namespaces must be an object, got %v", tok)
	}

	var out Namespaces
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}

		key, ok := keyTok.(string)
		if !ok {
			return errors.Wrapf(ErrInvalidLayout, "unexpected namespace key %v", keyTok)
		}

		var items []StorageItem
		if err := dec.Decode(&items); err != nil {
			return errors.Wrapf(ErrInvalidLayout, "namespace %s: %s", key, err.Error())
		}

		out.Set(key, items)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*n = out
	return nil
}
