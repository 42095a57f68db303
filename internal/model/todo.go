package model

import (
	"slices"
	"strings"

	"github.com/bytedance/sonic"
)

// Todo is the domain model for a todo entry.
type Todo struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// NormalizeTitle trims surrounding whitespace. An empty result is never a valid title.
func NormalizeTitle(title string) string {
	return strings.TrimSpace(title)
}

// Patch is a partial update: only fields that are Set change.
type Patch struct {
	Title     Optional[string] `json:"title"`
	Completed Optional[bool]   `json:"completed"`
}

// SetTitle returns a patch that only changes the title.
func SetTitle(title string) Patch {
	return Patch{Title: Some(title)}
}

// SetCompleted returns a patch that only changes the completion flag.
func SetCompleted(done bool) Patch {
	return Patch{Completed: Some(done)}
}

// IsEmpty reports whether the patch would change nothing.
func (p Patch) IsEmpty() bool {
	return !p.Title.Set && !p.Completed.Set
}

// Apply returns t with the set fields of p applied. The title is trimmed.
func (p Patch) Apply(t Todo) Todo {
	if p.Title.Set {
		t.Title = NormalizeTitle(p.Title.Value)
	}
	if p.Completed.Set {
		t.Completed = p.Completed.Value
	}
	return t
}

// MarshalJSON emits only the fields that are set, so the wire body of an
// update never carries a zero value the caller did not ask for.
func (p Patch) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, 2)
	if p.Title.Set {
		body["title"] = p.Title.Value
	}
	if p.Completed.Set {
		body["completed"] = p.Completed.Value
	}
	return sonic.ConfigStd.Marshal(body)
}

// CloneTodos copies a todo slice. A nil input stays nil.
func CloneTodos(in []Todo) []Todo {
	return slices.Clone(in)
}

// ApplyToList patches the todo with the given id inside list and returns a new slice.
// Other entries are copied unchanged; an unknown id leaves the list as it was.
func ApplyToList(list []Todo, id int, p Patch) []Todo {
	if list == nil {
		return nil
	}
	out := make([]Todo, len(list))
	for i, t := range list {
		if t.ID == id {
			t = p.Apply(t)
		}
		out[i] = t
	}
	return out
}
