package display

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"
	"sort"
)

const databaseVersion = 4

// counterKey is the (output name, direction, output name) key the
// statistical layer accumulates habits under (spec §4.4).
type counterKey struct {
	NameA string
	Dir   Direction
	NameB string
}

// Database is the persistent identity-set -> AbstractLayout store, plus the
// per-port relation counters that back the statistical fallback (spec §4.4).
// Not safe for concurrent use; the manager owns it single-threaded.
type Database struct {
	table    map[IdentitySet]AbstractLayout
	counters map[counterKey]int
}

// NewDatabase returns an empty database.
func NewDatabase() *Database {
	return &Database{
		table:    map[IdentitySet]AbstractLayout{},
		counters: map[counterKey]int{},
	}
}

// Keys returns every identity set the database has a stored layout for,
// sorted for deterministic iteration (control socket / MCP introspection).
func (db *Database) Keys() []IdentitySet {
	keys := make([]IdentitySet, 0, len(db.table))
	for k := range db.table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Forget removes a stored layout, so the identity set re-synthesises from
// the statistical/default fallback next time it's seen. Reports whether an
// entry was present.
func (db *Database) Forget(key IdentitySet) bool {
	if _, ok := db.table[key]; !ok {
		return false
	}
	delete(db.table, key)
	return true
}

// Get returns the stored layout for key, or ErrNotFound.
func (db *Database) Get(key IdentitySet) (AbstractLayout, error) {
	a, ok := db.table[key]
	if !ok {
		return AbstractLayout{}, newErr(KindLayout, "db_get", ErrNotFound)
	}
	return a.Copy(), nil
}

// RecordSuccess stores abstract under its key and folds the concrete
// layout's realised relations into the per-name counters (spec §4.4).
// nameOf maps each identity in abstract to the output name it was bound to
// in concrete.
func (db *Database) RecordSuccess(abstract AbstractLayout, nameOf map[Identity]string) {
	db.table[abstract.Key()] = abstract.Copy()

	names := make([]Identity, 0, len(abstract.Outputs))
	for id := range abstract.Outputs {
		names = append(names, id)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, ia := range names {
		na, ok := nameOf[ia]
		if !ok {
			continue
		}
		for idB, rel := range abstract.Outputs[ia].Neighbours {
			nb, ok := nameOf[idB]
			if !ok || rel == DirNone {
				continue
			}
			db.counters[counterKey{NameA: na, Dir: rel, NameB: nb}]++
		}
	}
}

// DefaultLayout returns an abstract layout with every identity in ids,
// identity transforms, and no relations (spec §4.4).
func (db *Database) DefaultLayout(ids []Identity) AbstractLayout {
	return NewAbstractLayout(ids)
}

// StatisticalLayout builds a layout from the learned per-name counters: for
// every ordered pair of output names present in concrete, it installs the
// relation with the largest combined counter across both orientations,
// breaking ties by direction ordinal and skipping pairs whose best counter
// is zero (spec §4.4).
func (db *Database) StatisticalLayout(concrete ConcreteLayout, ids []Identity) AbstractLayout {
	abstract := NewAbstractLayout(ids)

	identityOf := make(map[string]Identity, len(concrete.Outputs))
	for name, o := range concrete.Outputs {
		if o.HasEDID {
			identityOf[name] = o.EDID
		}
	}

	names := concrete.sortedNames()
	for i, na := range names {
		ia, ok := identityOf[na]
		if !ok {
			continue
		}
		for j, nb := range names {
			if i == j {
				continue
			}
			ib, ok := identityOf[nb]
			if !ok {
				continue
			}
			if _, present := abstract.Outputs[ia]; !present {
				continue
			}
			if _, present := abstract.Outputs[ib]; !present {
				continue
			}

			best := DirNone
			bestCount := 0
			for d := DirLeft; d <= DirUnder; d++ {
				total := db.counters[counterKey{NameA: na, Dir: d, NameB: nb}] +
					db.counters[counterKey{NameA: nb, Dir: d.Inverse(), NameB: na}]
				if total > bestCount || (total == bestCount && total > 0 && d < best) {
					bestCount = total
					best = d
				}
			}
			if bestCount > 0 {
				abstract.SetRelation(ia, best, ib)
			}
		}
	}
	return abstract
}

// gobTransform, gobOutput and gobLayout are the on-disk shapes of
// Transform, AbstractOutput and AbstractLayout; gobLayout also carries the
// layout's identity-set key.
type gobTransform struct {
	Reflect  bool
	Rotation int
}

type gobOutput struct {
	Transform  gobTransform
	Neighbours map[Identity]Direction
}

type gobLayout struct {
	Key     IdentitySet
	Outputs map[Identity]gobOutput
}

type gobCounter struct {
	NameA string
	Dir   Direction
	NameB string
	Count int
}

// Store serialises the database to the v4 wire format: three
// length-prefixed blobs (version, layouts, counters), per spec §6.
func (db *Database) Store() ([]byte, error) {
	var buf bytes.Buffer

	if err := writeBlob(&buf, func(w *bytes.Buffer) error {
		return binary.Write(w, binary.BigEndian, int64(databaseVersion))
	}); err != nil {
		return nil, newErr(KindDatabaseLoad, "store", err)
	}

	layouts := make([]gobLayout, 0, len(db.table))
	for key, a := range db.table {
		outputs := make(map[Identity]gobOutput, len(a.Outputs))
		for id, o := range a.Outputs {
			reflect, rotation := o.Transform.Dump()
			outputs[id] = gobOutput{
				Transform:  gobTransform{Reflect: reflect, Rotation: rotation},
				Neighbours: o.Neighbours,
			}
		}
		layouts = append(layouts, gobLayout{Key: key, Outputs: outputs})
	}
	sort.Slice(layouts, func(i, j int) bool { return layouts[i].Key < layouts[j].Key })

	if err := writeBlob(&buf, func(w *bytes.Buffer) error {
		return gob.NewEncoder(w).Encode(layouts)
	}); err != nil {
		return nil, newErr(KindDatabaseLoad, "store", err)
	}

	counters := make([]gobCounter, 0, len(db.counters))
	for k, n := range db.counters {
		counters = append(counters, gobCounter{NameA: k.NameA, Dir: k.Dir, NameB: k.NameB, Count: n})
	}
	sort.Slice(counters, func(i, j int) bool {
		if counters[i].NameA != counters[j].NameA {
			return counters[i].NameA < counters[j].NameA
		}
		if counters[i].Dir != counters[j].Dir {
			return counters[i].Dir < counters[j].Dir
		}
		return counters[i].NameB < counters[j].NameB
	})

	if err := writeBlob(&buf, func(w *bytes.Buffer) error {
		return gob.NewEncoder(w).Encode(counters)
	}); err != nil {
		return nil, newErr(KindDatabaseLoad, "store", err)
	}

	return buf.Bytes(), nil
}

// LoadDatabase parses the v4 wire format. Load is all-or-nothing: any
// parse failure yields a DatabaseLoadError and no partial database (spec
// §6); the caller is expected to fall back to an empty one.
func LoadDatabase(data []byte) (*Database, error) {
	r := bytes.NewReader(data)

	versionBlob, err := readBlob(r)
	if err != nil {
		return nil, newErr(KindDatabaseLoad, "load", err)
	}
	var version int64
	if err := binary.Read(bytes.NewReader(versionBlob), binary.BigEndian, &version); err != nil {
		return nil, newErr(KindDatabaseLoad, "load", err)
	}
	if version != databaseVersion {
		return nil, newErr(KindDatabaseLoad, "load", ErrInvalidInput)
	}

	layoutBlob, err := readBlob(r)
	if err != nil {
		return nil, newErr(KindDatabaseLoad, "load", err)
	}
	var layouts []gobLayout
	if err := gob.NewDecoder(bytes.NewReader(layoutBlob)).Decode(&layouts); err != nil {
		return nil, newErr(KindDatabaseLoad, "load", err)
	}

	counterBlob, err := readBlob(r)
	if err != nil {
		return nil, newErr(KindDatabaseLoad, "load", err)
	}
	var counters []gobCounter
	if err := gob.NewDecoder(bytes.NewReader(counterBlob)).Decode(&counters); err != nil {
		return nil, newErr(KindDatabaseLoad, "load", err)
	}

	db := NewDatabase()
	for _, gl := range layouts {
		outputs := make(map[Identity]AbstractOutput, len(gl.Outputs))
		for id, gobOut := range gl.Outputs {
			nb := gobOut.Neighbours
			if nb == nil {
				nb = map[Identity]Direction{}
			}
			outputs[id] = AbstractOutput{
				Transform:  LoadTransform(gobOut.Transform.Reflect, gobOut.Transform.Rotation),
				Neighbours: nb,
			}
		}
		db.table[gl.Key] = AbstractLayout{Outputs: outputs}
	}
	for _, gc := range counters {
		if gc.Count <= 0 {
			continue
		}
		db.counters[counterKey{NameA: gc.NameA, Dir: gc.Dir, NameB: gc.NameB}] = gc.Count
	}
	return db, nil
}

func writeBlob(buf *bytes.Buffer, encode func(*bytes.Buffer) error) error {
	var body bytes.Buffer
	if err := encode(&body); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(body.Len())); err != nil {
		return err
	}
	_, err := buf.Write(body.Bytes())
	return err
}

func readBlob(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	blob := make([]byte, n)
	if _, err := io.ReadFull(r, blob); err != nil {
		return nil, err
	}
	return blob, nil
}
