package workspace

// Dataset groups items loaded from one source or derived by one operation.
// It exists only while it has at least one item.
type Dataset struct {
	Name string
	// Path is the file the dataset was imported from, if any.
	Path string
	// Metadata holds numeric attributes such as import offsets.
	Metadata map[string]float64
	Labels   map[string]string

	children []string
	items    map[string]*Item
}

func newDataset(name string) *Dataset {
	return &Dataset{
		Name:     name,
		Metadata: make(map[string]float64),
		Labels:   make(map[string]string),
		items:    make(map[string]*Item),
	}
}

// Children returns item names in insertion order.
func (d *Dataset) Children() []string {
	out := make([]string, len(d.children))
	copy(out, d.children)
	return out
}

// Len returns the number of items.
func (d *Dataset) Len() int {
	return len(d.children)
}

// Item returns the named child, or nil.
func (d *Dataset) Item(name string) *Item {
	return d.items[name]
}

// Offset returns the import re-centering offset, zero if none was applied.
func (d *Dataset) Offset() (x, y float64) {
	return d.Metadata[MetaOffsetX], d.Metadata[MetaOffsetY]
}

// Metadata keys written by importers.
const (
	MetaOffsetX = "offset_x"
	MetaOffsetY = "offset_y"
)

func (d *Dataset) remove(name string) {
	delete(d.items, name)
	for i, c := range d.children {
		if c == name {
			d.children = append(d.children[:i], d.children[i+1:]...)
			return
		}
	}
}
