package scheduling

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// Entry активное бронирование в индексе
type Entry struct {
	BookingID string
	Interval  model.Interval
}

// ConflictIndex хранит интервалы активных бронирований каждого репетитора,
// отсортированные по началу.
//
// Интервалы одного репетитора не пересекаются, поэтому порядок по началу
// совпадает с порядком по концу. На этом держится поиск пересечений.
type ConflictIndex struct {
	mu     sync.RWMutex
	tutors map[string][]Entry
}

// NewConflictIndex создаёт пустой индекс
func NewConflictIndex() *ConflictIndex {
	return &ConflictIndex{tutors: make(map[string][]Entry)}
}

// Query возвращает ID активных бронирований, пересекающихся с интервалом
func (ci *ConflictIndex) Query(tutorID string, interval model.Interval) []string {
	ci.mu.RLock()
	defer ci.mu.RUnlock()

	return overlapping(ci.tutors[tutorID], interval)
}

// Insert добавляет интервал. При пересечении индекс не меняется.
func (ci *ConflictIndex) Insert(tutorID, bookingID string, interval model.Interval) error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	entries := ci.tutors[tutorID]
	for _, e := range entries {
		if e.BookingID == bookingID {
			return &ConflictError{TutorID: tutorID, BookingID: bookingID, Conflicts: []string{bookingID}}
		}
	}

	if conflicts := overlapping(entries, interval); len(conflicts) > 0 {
		return &ConflictError{TutorID: tutorID, BookingID: bookingID, Conflicts: conflicts}
	}

	pos := sort.Search(len(entries), func(i int) bool {
		return !entries[i].Interval.Start.Before(interval.Start)
	})
	ci.tutors[tutorID] = slices.Insert(entries, pos, Entry{BookingID: bookingID, Interval: interval})
	return nil
}

// Remove убирает бронирование из индекса. Возвращает false, если его там не было.
func (ci *ConflictIndex) Remove(tutorID, bookingID string) bool {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	entries, ok := ci.tutors[tutorID]
	if !ok {
		return false
	}
	for i, e := range entries {
		if e.BookingID == bookingID {
			ci.tutors[tutorID] = slices.Delete(entries, i, i+1)
			return true
		}
	}
	return false
}

// Seed заменяет набор интервалов репетитора данными из хранилища.
// Если в данных есть пересечения, индекс не меняется.
func (ci *ConflictIndex) Seed(tutorID string, entries []Entry) error {
	sorted := slices.Clone(entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Interval.Start.Before(sorted[j].Interval.Start)
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Interval.Overlaps(sorted[i].Interval) {
			return &ConflictError{
				TutorID:   tutorID,
				BookingID: sorted[i].BookingID,
				Conflicts: []string{sorted[i-1].BookingID},
			}
		}
	}

	ci.mu.Lock()
	defer ci.mu.Unlock()

	if sorted == nil {
		sorted = []Entry{}
	}
	ci.tutors[tutorID] = sorted
	return nil
}

// Seeded проверяет, загружен ли репетитор в индекс
func (ci *ConflictIndex) Seeded(tutorID string) bool {
	ci.mu.RLock()
	defer ci.mu.RUnlock()

	_, ok := ci.tutors[tutorID]
	return ok
}

// Forget выгружает репетитора. Следующее обращение загрузит его заново.
func (ci *ConflictIndex) Forget(tutorID string) {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	delete(ci.tutors, tutorID)
}

// Prune удаляет интервалы, закончившиеся не позже before.
// Опустевшие репетиторы выгружаются. Возвращает число удалённых интервалов.
func (ci *ConflictIndex) Prune(before time.Time) int {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	removed := 0
	for tutorID, entries := range ci.tutors {
		drop := sort.Search(len(entries), func(i int) bool {
			return entries[i].Interval.End.After(before)
		})
		removed += drop
		if drop == len(entries) {
			delete(ci.tutors, tutorID)
			continue
		}
		ci.tutors[tutorID] = slices.Clone(entries[drop:])
	}
	return removed
}

// Len количество активных интервалов репетитора
func (ci *ConflictIndex) Len(tutorID string) int {
	ci.mu.RLock()
	defer ci.mu.RUnlock()

	return len(ci.tutors[tutorID])
}

// Entries копия интервалов репетитора в порядке начала
func (ci *ConflictIndex) Entries(tutorID string) []Entry {
	ci.mu.RLock()
	defer ci.mu.RUnlock()

	return slices.Clone(ci.tutors[tutorID])
}

// overlapping: бинарный поиск первого интервала с началом >= interval.End,
// затем обратный проход, пока конец интервала больше interval.Start.
func overlapping(entries []Entry, interval model.Interval) []string {
	hi := sort.Search(len(entries), func(i int) bool {
		return !entries[i].Interval.Start.Before(interval.End)
	})

	var ids []string
	for i := hi - 1; i >= 0; i-- {
		if !entries[i].Interval.End.After(interval.Start) {
			break
		}
		ids = append(ids, entries[i].BookingID)
	}
	slices.Reverse(ids)
	return ids
}
