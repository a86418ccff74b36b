package timeline

// Interaction tolerances. Freehand drawing merges tightly so a continuous drag
// yields an evenly spaced sequence; deliberate repositioning merges looser.
const (
	HitRadiusPx          = 10.0
	DrawMergeToleranceMs = 25
	DragMergeToleranceMs = 60
)

// PointerKind tags a pointer event.
type PointerKind int

const (
	// PointerDown is a press inside the lane area.
	PointerDown PointerKind = iota
	// PointerMove is a move while the pointer is held down.
	PointerMove
	// PointerUp releases the pointer.
	PointerUp
)

// PointerEvent is a pointer interaction in global pixel coordinates.
type PointerEvent struct {
	Kind PointerKind
	X, Y float64
}

type editMode int

const (
	modeIdle editMode = iota
	modeDraw
	modeDrag
)

// Editor turns pointer and key events into timeline mutations and tracks the
// current selection. A press on an existing point switches to drag mode; a
// fresh press anywhere else starts a new point and freehand drawing. The
// editor owns the selection and keeps it valid across index shifts and
// deletions; the timeline itself never sees it.
type Editor struct {
	TL         *Timeline
	Map        Mapper
	Selection  Selection
	SnapToGrid bool

	mode    editMode
	dragCh  int
	dragIdx int
}

// NewEditor returns an editor over the timeline with the given geometry.
func NewEditor(tl *Timeline, m Mapper) *Editor {
	return &Editor{TL: tl, Map: m, Selection: NoSelection()}
}

// HandlePointer applies one pointer event. Out-of-lane or otherwise invalid
// input leaves the timeline untouched.
func (e *Editor) HandlePointer(ev PointerEvent) {
	switch ev.Kind {
	case PointerDown:
		e.pointerDown(ev)
	case PointerMove:
		e.pointerMove(ev)
	case PointerUp:
		e.mode = modeIdle
	}
}

func (e *Editor) pointerDown(ev PointerEvent) {
	if sel, ok := FindPointNear(e.TL, e.Map, ev.X, ev.Y, HitRadiusPx); ok {
		e.Selection = sel
		e.mode = modeDrag
		e.dragCh = sel.Channel
		e.dragIdx = sel.Index
		return
	}
	lane, ok := e.Map.LaneForY(ev.Y, e.TL.NumChannels())
	if !ok {
		return
	}
	idx, err := e.addAt(lane, ev, DrawMergeToleranceMs)
	if err != nil {
		return
	}
	e.Selection = PointSelection(lane, idx)
	e.mode = modeDraw
	e.dragCh = lane
}

func (e *Editor) pointerMove(ev PointerEvent) {
	switch e.mode {
	case modeDraw:
		idx, err := e.addAt(e.dragCh, ev, DrawMergeToleranceMs)
		if err != nil {
			return
		}
		e.Selection = PointSelection(e.dragCh, idx)
	case modeDrag:
		t, p := e.candidate(e.dragCh, ev)
		idx, err := e.TL.MovePoint(e.dragCh, e.dragIdx, t, p, DragMergeToleranceMs)
		if err != nil {
			return
		}
		// A drag that crosses a neighbor reorders the curve; adopt the new
		// index so the selection never desyncs.
		e.dragIdx = idx
		e.Selection = PointSelection(e.dragCh, idx)
	}
}

func (e *Editor) addAt(lane int, ev PointerEvent, toleranceMs int) (int, error) {
	t, p := e.candidate(lane, ev)
	return e.TL.AddOrReplacePoint(lane, t, p, toleranceMs)
}

// candidate maps a pointer position to a (time, pulse) pair for the lane,
// applying grid snap before any merge or clamp so snapping stays idempotent.
func (e *Editor) candidate(lane int, ev PointerEvent) (timeMs, pulse float64) {
	ch := e.TL.channels[lane]
	timeMs = float64(e.Map.XToTime(ev.X))
	if e.SnapToGrid {
		timeMs = SnapTime(timeMs)
	}
	laneY := ev.Y - e.Map.LaneTop(lane)
	pulse = float64(e.Map.LaneYToPulse(ch, laneY))
	return timeMs, pulse
}

// SelectAnnotationAt selects the first annotation within the hit radius of the
// ruler x coordinate, clearing any point selection. Returns false when none is
// near.
func (e *Editor) SelectAnnotationAt(x float64) bool {
	idx, ok := FindAnnotationNear(e.TL, e.Map, x, HitRadiusPx)
	if !ok {
		return false
	}
	e.Selection = AnnotationSelection(idx)
	return true
}

// Deselect clears the selection without mutating any data.
func (e *Editor) Deselect() { e.Selection = NoSelection() }

// DeleteSelected removes the selected point or annotation and clears the
// selection. With nothing selected it is a no-op.
func (e *Editor) DeleteSelected() {
	switch e.Selection.Kind {
	case SelectPoint:
		_ = e.TL.DeletePoint(e.Selection.Channel, e.Selection.Index)
	case SelectAnnotation:
		_ = e.TL.DeleteAnnotation(e.Selection.Index)
	default:
		return
	}
	e.Selection = NoSelection()
	e.mode = modeIdle
}
