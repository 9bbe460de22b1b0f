package core

import (
	"context"
	"fmt"
	"sort"
	"strconv"
)

// Resolver maps identity keys to surrogate ids, allocating on first sighting.
// The same key always resolves to the same id for the lifetime of a resolver.
type Resolver interface {
	ResolveParent(ctx context.Context, key string, attrs ParentFields) (id int64, isNew bool, err error)
	ResolveChild(ctx context.Context, key ChildKey, attrs ChildFields) (id int64, isNew bool, err error)
}

// MemoryResolver resolves identities against an in-memory index spanning a
// whole batch. It is not safe for concurrent use.
type MemoryResolver struct {
	parentIDs  map[string]int64
	nextParent int64
	parents    []Parent // materialized, in resolution order
	seen       map[int64]bool

	childIDs  map[ChildKey]int64
	nextChild int64
	children  []Child
}

// NewMemoryResolver creates an empty batch resolver.
func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{
		parentIDs:  make(map[string]int64),
		nextParent: 1,
		seen:       make(map[int64]bool),
		childIDs:   make(map[ChildKey]int64),
		nextChild:  1,
	}
}

// Prepare allocates parent ids for keys before any row is resolved, in
// ascending key order: numeric when every key is an integer, lexical otherwise.
// Keys already known keep their ids.
func (r *MemoryResolver) Prepare(keys []string) {
	uniq := make([]string, 0, len(keys))
	dup := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k == "" || dup[k] {
			continue
		}
		if _, ok := r.parentIDs[k]; ok {
			continue
		}
		dup[k] = true
		uniq = append(uniq, k)
	}

	sortKeys(uniq)
	for _, k := range uniq {
		r.parentIDs[k] = r.nextParent
		r.nextParent++
	}
}

func sortKeys(keys []string) {
	nums := make(map[string]int64, len(keys))
	for _, k := range keys {
		n, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			sort.Strings(keys)
			return
		}
		nums[k] = n
	}
	sort.Slice(keys, func(i, j int) bool { return nums[keys[i]] < nums[keys[j]] })
}

// ResolveParent returns the id for key. A prepared parent reports isNew on
// its first resolution, which is also when its attributes are captured.
func (r *MemoryResolver) ResolveParent(_ context.Context, key string, attrs ParentFields) (int64, bool, error) {
	id, ok := r.parentIDs[key]
	if !ok {
		id = r.nextParent
		r.nextParent++
		r.parentIDs[key] = id
	}
	if r.seen[id] {
		return id, false, nil
	}

	r.seen[id] = true
	r.parents = append(r.parents, parentFrom(id, attrs))
	return id, true, nil
}

// ResolveChild returns the id for key, allocating contiguously on first sighting.
func (r *MemoryResolver) ResolveChild(_ context.Context, key ChildKey, attrs ChildFields) (int64, bool, error) {
	if !r.seen[key.ParentID] {
		return 0, false, fmt.Errorf("%w: parent %d for child %s", ErrUnknownParent, key.ParentID, key)
	}
	if id, ok := r.childIDs[key]; ok {
		return id, false, nil
	}

	id := r.nextChild
	r.nextChild++
	r.childIDs[key] = id
	r.children = append(r.children, childFrom(id, key.ParentID, attrs))
	return id, true, nil
}

type memoryResolverMark struct {
	parents, children int
	nextChild         int64
}

func (r *MemoryResolver) mark() memoryResolverMark {
	return memoryResolverMark{parents: len(r.parents), children: len(r.children), nextChild: r.nextChild}
}

// rewind forgets every entity resolved since m. Parent ids stay allocated so
// later rows with the same key keep the prepared ordering.
func (r *MemoryResolver) rewind(m memoryResolverMark) {
	for _, p := range r.parents[m.parents:] {
		delete(r.seen, p.ID)
	}
	r.parents = r.parents[:m.parents]

	for _, c := range r.children[m.children:] {
		delete(r.childIDs, NewChildKey(c.ParentID, c.FullName, c.Age))
	}
	r.children = r.children[:m.children]
	r.nextChild = m.nextChild
}

// Parents returns the materialized parents ordered by id.
func (r *MemoryResolver) Parents() []Parent {
	out := append([]Parent(nil), r.parents...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Children returns the materialized children ordered by id.
func (r *MemoryResolver) Children() []Child {
	return append([]Child(nil), r.children...)
}

// StoreResolver resolves identities with point lookups inside one store
// transaction. The store's unique constraints decide new versus existing.
type StoreResolver struct {
	tx Tx
}

// NewStoreResolver binds a resolver to tx.
func NewStoreResolver(tx Tx) *StoreResolver {
	return &StoreResolver{tx: tx}
}

// ResolveParent looks up a parent by phone, inserting on miss.
func (r *StoreResolver) ResolveParent(ctx context.Context, key string, attrs ParentFields) (int64, bool, error) {
	if id, found, err := r.tx.FindParentByPhone(ctx, key); err != nil {
		return 0, false, fmt.Errorf("find parent: %w", err)
	} else if found {
		return id, false, nil
	}

	attrs.PhoneNumber = key
	id, inserted, err := r.tx.InsertParent(ctx, attrs)
	if err != nil {
		return 0, false, fmt.Errorf("insert parent: %w", err)
	}
	if inserted {
		return id, true, nil
	}

	// Lost the insert to a concurrent writer.
	id, found, err := r.tx.FindParentByPhone(ctx, key)
	if err != nil {
		return 0, false, fmt.Errorf("find parent: %w", err)
	}
	if !found {
		return 0, false, fmt.Errorf("parent %q conflicted but is not visible", key)
	}
	return id, false, nil
}

// ResolveChild looks up a child by (parent, name key, age), inserting on miss.
func (r *StoreResolver) ResolveChild(ctx context.Context, key ChildKey, attrs ChildFields) (int64, bool, error) {
	if id, found, err := r.tx.FindChild(ctx, key.ParentID, key.Name, key.Age); err != nil {
		return 0, false, fmt.Errorf("find child: %w", err)
	} else if found {
		return id, false, nil
	}

	id, inserted, err := r.tx.InsertChild(ctx, key.ParentID, key.Name, attrs)
	if err != nil {
		return 0, false, fmt.Errorf("insert child: %w", err)
	}
	if inserted {
		return id, true, nil
	}

	id, found, err := r.tx.FindChild(ctx, key.ParentID, key.Name, key.Age)
	if err != nil {
		return 0, false, fmt.Errorf("find child: %w", err)
	}
	if !found {
		return 0, false, fmt.Errorf("child %s conflicted but is not visible", key)
	}
	return id, false, nil
}

func parentFrom(id int64, f ParentFields) Parent {
	return Parent{
		ID:                   id,
		IdentityKey:          f.IdentityKey,
		FullName:             f.FullName,
		Email:                f.Email,
		Gender:               f.Gender,
		RoleInChurch:         f.RoleInChurch,
		DepartmentInChurch:   f.DepartmentInChurch,
		PhoneNumber:          f.PhoneNumber,
		SecondaryPhoneNumber: f.SecondaryPhoneNumber,
		Address:              f.Address,
	}
}

func childFrom(id, parentID int64, f ChildFields) Child {
	return Child{
		ID:                   id,
		ParentID:             parentID,
		FullName:             f.FullName,
		Age:                  f.Age,
		Gender:               f.Gender,
		SpecialNeeds:         f.SpecialNeeds,
		RelationshipToParent: f.RelationshipToParent,
	}
}
