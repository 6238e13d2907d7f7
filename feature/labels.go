package feature

// Labels maps each generated column back to the feature that produced it. Position i is the
// column appended i-th by Set.Apply.
type Labels struct {
	byColumn map[string]int
	features []Feature
}

// NewLabels indexes features by their column name
func NewLabels(features []Feature) *Labels {
	l := &Labels{
		byColumn: make(map[string]int, len(features)),
		features: features,
	}
	for i, f := range features {
		l.byColumn[f.String()] = i
	}
	return l
}

func (l *Labels) Len() int {
	if l == nil {
		return 0
	}
	return len(l.features)
}

// Columns returns the generated column names in order
func (l *Labels) Columns() []string {
	if l == nil {
		return nil
	}
	cols := make([]string, len(l.features))
	for i, f := range l.features {
		cols[i] = f.String()
	}
	return cols
}

// Lookup returns the feature that generated a column
func (l *Labels) Lookup(column string) (Feature, bool) {
	if l == nil {
		return nil, false
	}
	i, exists := l.byColumn[column]
	if !exists {
		return nil, false
	}
	return l.features[i], true
}

// OfType returns the columns generated by features of one type
func (l *Labels) OfType(ft FeatureType) []string {
	var cols []string
	for _, f := range l.features {
		if f.Type() == ft {
			cols = append(cols, f.String())
		}
	}
	return cols
}
