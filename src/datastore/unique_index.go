package datastore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"griffon/src/models"
)

// uniqueIndex maps the values of a group of properties to the identities of
// the rows holding them. Rows with a nil value in any indexed property are
// not indexed, so several of them may coexist.
type uniqueIndex struct {
	properties []string
	buckets    map[uint32][]indexEntry
	keysByID   map[int64][]byte
}

type indexEntry struct {
	key []byte
	id  int64
}

func newUniqueIndex(properties []string) *uniqueIndex {
	return &uniqueIndex{
		properties: properties,
		buckets:    make(map[uint32][]indexEntry),
		keysByID:   make(map[int64][]byte),
	}
}

func indexName(properties []string) string {
	return strings.Join(properties, ",")
}

// hashKey computes the bucket of an encoded key.
func hashKey(key []byte) uint32 {
	h := fnv.New32a()
	h.Write(key)
	return h.Sum32()
}

// keyOf encodes the indexed values of entity. ok is false when a value is nil
// or a property does not exist.
func (ix *uniqueIndex) keyOf(class models.DomainClass, entity any) (key []byte, values []any, ok bool) {
	var buffer bytes.Buffer
	values = make([]any, 0, len(ix.properties))
	for _, name := range ix.properties {
		p, found := class.Property(name)
		if !found {
			return nil, nil, false
		}
		v := p.Value(entity)
		if v == nil {
			return nil, nil, false
		}
		encodeFieldValue(&buffer, v)
		values = append(values, v)
	}
	return buffer.Bytes(), values, true
}

// conflict returns the identity of another row holding key.
func (ix *uniqueIndex) conflict(key []byte, id int64) (int64, bool) {
	for _, e := range ix.buckets[hashKey(key)] {
		if e.id != id && bytes.Equal(e.key, key) {
			return e.id, true
		}
	}
	return 0, false
}

func (ix *uniqueIndex) put(class models.DomainClass, id int64, entity any) {
	ix.remove(id)
	key, _, ok := ix.keyOf(class, entity)
	if !ok {
		return
	}
	h := hashKey(key)
	ix.buckets[h] = append(ix.buckets[h], indexEntry{key: key, id: id})
	ix.keysByID[id] = key
}

// refresh re-keys rows whose indexed values were changed in place after
// they were saved. It reports whether any key changed.
func (ix *uniqueIndex) refresh(class models.DomainClass, rows map[int64]any) bool {
	changed := false
	for id, entity := range rows {
		key, _, ok := ix.keyOf(class, entity)
		old, indexed := ix.keysByID[id]
		if ok == indexed && (!ok || bytes.Equal(key, old)) {
			continue
		}
		ix.put(class, id, entity)
		changed = true
	}
	return changed
}

func (ix *uniqueIndex) remove(id int64) {
	key, ok := ix.keysByID[id]
	if !ok {
		return
	}
	delete(ix.keysByID, id)
	h := hashKey(key)
	entries := ix.buckets[h]
	for i, e := range entries {
		if e.id == id {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(ix.buckets, h)
	} else {
		ix.buckets[h] = entries
	}
}

// encodeFieldValue appends a type tagged encoding of value to buffer.
// Integral numbers share one tag whatever their Go kind, so 3, int32(3) and
// 3.0 produce the same key.
func encodeFieldValue(buffer *bytes.Buffer, value any) {
	switch v := value.(type) {
	case string:
		buffer.WriteByte(1)
		writeBytes(buffer, []byte(v))
		return

	case bool:
		buffer.WriteByte(4)
		if v {
			buffer.WriteByte(1)
		} else {
			buffer.WriteByte(0)
		}
		return

	case time.Time:
		buffer.WriteByte(5)
		binary.Write(buffer, binary.LittleEndian, v.UnixNano())
		return

	case []byte:
		buffer.WriteByte(6)
		writeBytes(buffer, v)
		return
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buffer.WriteByte(2)
		binary.Write(buffer, binary.LittleEndian, rv.Int())
		return

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u <= math.MaxInt64 {
			buffer.WriteByte(2)
			binary.Write(buffer, binary.LittleEndian, int64(u))
			return
		}
		buffer.WriteByte(3)
		binary.Write(buffer, binary.LittleEndian, float64(u))
		return

	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
			buffer.WriteByte(2)
			binary.Write(buffer, binary.LittleEndian, int64(f))
			return
		}
		if math.IsNaN(f) {
			f = math.NaN()
		}
		buffer.WriteByte(3)
		binary.Write(buffer, binary.LittleEndian, math.Float64bits(f))
		return

	case reflect.Slice, reflect.Array:
		buffer.WriteByte(8)
		binary.Write(buffer, binary.LittleEndian, int64(rv.Len()))
		for i := 0; i < rv.Len(); i++ {
			encodeFieldValue(buffer, rv.Index(i).Interface())
		}
		return

	case reflect.Map:
		buffer.WriteByte(7)
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		binary.Write(buffer, binary.LittleEndian, int64(len(keys)))
		for _, k := range keys {
			encodeFieldValue(buffer, k.Interface())
			encodeFieldValue(buffer, rv.MapIndex(k).Interface())
		}
		return
	}

	if value == nil {
		buffer.WriteByte(0)
		return
	}
	buffer.WriteByte(9)
	writeBytes(buffer, []byte(fmt.Sprintf("%v", value)))
}

// writeBytes writes b with a length prefix so adjacent values in a group key
// cannot run into each other.
func writeBytes(buffer *bytes.Buffer, b []byte) {
	binary.Write(buffer, binary.LittleEndian, uint32(len(b)))
	buffer.Write(b)
}
