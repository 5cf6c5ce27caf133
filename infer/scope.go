package infer

import "github.com/tmplschema/tmplschema/shape"

// frame is a single layer of local bindings.
type frame map[string]shape.Shape

// scope is a stack of frames threaded through the statement visitor.  A name
// with no binding in any frame is a free variable of the template.
type scope struct {
	frames []frame
}

func newScope() *scope {
	return &scope{frames: []frame{{}}}
}

// push adds an inner frame.
func (s *scope) push() {
	s.frames = append(s.frames, frame{})
}

// pop removes and returns the innermost frame.
func (s *scope) pop() frame {
	var top = s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return top
}

// lookup walks the frames from innermost to outermost.
func (s *scope) lookup(name string) (shape.Shape, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if sh, ok := s.frames[i][name]; ok {
			return sh, true
		}
	}
	return nil, false
}

// bind binds a name in the innermost frame.
func (s *scope) bind(name string, sh shape.Shape) {
	s.frames[len(s.frames)-1][name] = sh
}

// rebind replaces the binding in the frame that holds the name, or binds it
// in the innermost frame when the name is unbound.  Assignments that target
// an outer name use this.
func (s *scope) rebind(name string, sh shape.Shape) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if _, ok := s.frames[i][name]; ok {
			s.frames[i][name] = sh
			return
		}
	}
	s.bind(name, sh)
}

// clone deep-copies the scope for visiting a conditional branch.
func (s *scope) clone() *scope {
	var frames = make([]frame, len(s.frames))
	for i, f := range s.frames {
		frames[i] = make(frame, len(f))
		for name, sh := range f {
			frames[i][name] = sh.Clone()
		}
	}
	return &scope{frames: frames}
}
