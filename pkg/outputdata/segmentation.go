package outputdata

// SegmentedObject maps an object to its segmentation color, model name, and
// category.
type SegmentedObject struct {
	ID       int32
	Color    [3]uint8
	Name     string
	Category string
}

// SegmentationColors holds the per-object segmentation data. The build sends
// this once, after objects are created.
type SegmentationColors struct {
	Objects []SegmentedObject
}

// TypeID implements Payload.
func (*SegmentationColors) TypeID() string { return IDSegmentationColors }

// ParseSegmentationColors decodes a "segm" payload.
func ParseSegmentationColors(payload []byte) (*SegmentationColors, error) {
	r, err := newReader(payload, IDSegmentationColors)
	if err != nil {
		return nil, err
	}
	n := r.count()
	s := &SegmentationColors{Objects: make([]SegmentedObject, 0, n)}
	for i := 0; i < n; i++ {
		s.Objects = append(s.Objects, SegmentedObject{
			ID:       r.i32(),
			Color:    r.rgb(),
			Name:     r.str(),
			Category: r.str(),
		})
	}
	return s, r.finish()
}

// Encode serializes the payload in build wire layout.
func (s *SegmentationColors) Encode() []byte {
	w := newWriter(IDSegmentationColors)
	w.u32(uint32(len(s.Objects)))
	for _, o := range s.Objects {
		w.i32(o.ID)
		w.rgb(o.Color)
		w.str(o.Name)
		w.str(o.Category)
	}
	return w.bytes()
}

// Category is a model category and its segmentation color in the category
// image pass.
type Category struct {
	Name  string
	Color [3]uint8
}

// Categories holds the category palette for the scene.
type Categories struct {
	Categories []Category
}

// TypeID implements Payload.
func (*Categories) TypeID() string { return IDCategories }

// ParseCategories decodes a "cate" payload.
func ParseCategories(payload []byte) (*Categories, error) {
	r, err := newReader(payload, IDCategories)
	if err != nil {
		return nil, err
	}
	n := r.count()
	c := &Categories{Categories: make([]Category, 0, n)}
	for i := 0; i < n; i++ {
		c.Categories = append(c.Categories, Category{
			Name:  r.str(),
			Color: r.rgb(),
		})
	}
	return c, r.finish()
}

// Encode serializes the payload in build wire layout.
func (c *Categories) Encode() []byte {
	w := newWriter(IDCategories)
	w.u32(uint32(len(c.Categories)))
	for _, cat := range c.Categories {
		w.str(cat.Name)
		w.rgb(cat.Color)
	}
	return w.bytes()
}
