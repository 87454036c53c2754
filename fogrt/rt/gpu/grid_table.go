package gpu

import "errors"

// ErrEmptyGrid is returned when a grid with a zero dimension is requested.
var ErrEmptyGrid = errors.New("gpu: grid has a zero dimension")

type gridEntry[T any] struct {
	desc GridDesc
	res  T
}

// gridTable hands out grid handles and recycles released grids of the same
// size, so steady state frames allocate nothing.
type gridTable[T any] struct {
	live map[GridHandle]gridEntry[T]
	free map[GridDesc][]T
	next GridHandle
}

func newGridTable[T any]() *gridTable[T] {
	return &gridTable[T]{
		live: make(map[GridHandle]gridEntry[T]),
		free: make(map[GridDesc][]T),
	}
}

func (t *gridTable[T]) acquire(desc GridDesc, create func(GridDesc) (T, error)) (GridHandle, error) {
	if desc.Froxels() == 0 {
		return 0, ErrEmptyGrid
	}
	var res T
	if pool := t.free[desc]; len(pool) > 0 {
		res = pool[len(pool)-1]
		t.free[desc] = pool[:len(pool)-1]
	} else {
		var err error
		if res, err = create(desc); err != nil {
			return 0, err
		}
	}
	t.next++
	if t.next == 0 {
		t.next = 1
	}
	t.live[t.next] = gridEntry[T]{desc: desc, res: res}
	return t.next, nil
}

func (t *gridTable[T]) get(h GridHandle) (T, GridDesc, bool) {
	e, ok := t.live[h]
	return e.res, e.desc, ok
}

func (t *gridTable[T]) release(h GridHandle) bool {
	e, ok := t.live[h]
	if !ok {
		return false
	}
	delete(t.live, h)
	t.free[e.desc] = append(t.free[e.desc], e.res)
	return true
}

func (t *gridTable[T]) liveCount() int {
	return len(t.live)
}

func (t *gridTable[T]) pooled() int {
	n := 0
	for _, p := range t.free {
		n += len(p)
	}
	return n
}

// drain hands every live and pooled resource to fn and empties the table.
func (t *gridTable[T]) drain(fn func(T)) {
	for h, e := range t.live {
		fn(e.res)
		delete(t.live, h)
	}
	for d, p := range t.free {
		for _, r := range p {
			fn(r)
		}
		delete(t.free, d)
	}
}
