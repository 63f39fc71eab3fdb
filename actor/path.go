package actor

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidPath is returned when a path string cannot be parsed as an
// ActorPath.
var ErrInvalidPath = errors.New("invalid actor path")

// ErrPathEscapesRoot is returned when resolving a relative path segment
// (".." ) would ascend above the guardian root.
var ErrPathEscapesRoot = errors.New("relative path escapes guardian root")

// ActorPath is the canonical address of an actor within a system, rendered
// as:
//
//	scheme://system[@authority]/guardian/segment*[#uid]
//
// The uid fragment, when present, pins the path to one specific incarnation
// (it matches Pid.ID); a path without a uid addresses "whichever actor is
// currently alive at this path."
type ActorPath struct {
	Scheme    string
	System    string
	Authority string
	Segments  []string
	UID       uint64
	HasUID    bool
}

// ParsePath parses a canonical actor path string.
func ParsePath(raw string) (ActorPath, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ActorPath{}, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return ActorPath{}, fmt.Errorf(
			"%w: missing scheme or system authority", ErrInvalidPath,
		)
	}

	system := u.Hostname()
	authority := ""
	if u.User != nil {
		system = u.User.Username()
		authority = u.Host
	}

	trimmed := strings.Trim(u.Path, "/")
	var segments []string
	if trimmed != "" {
		segments = strings.Split(trimmed, "/")
	}
	for _, seg := range segments {
		if seg == "" || strings.HasPrefix(seg, "$") {
			return ActorPath{}, fmt.Errorf(
				"%w: invalid segment %q", ErrInvalidPath, seg,
			)
		}
	}

	p := ActorPath{
		Scheme:    u.Scheme,
		System:    system,
		Authority: authority,
		Segments:  segments,
	}

	if u.Fragment != "" {
		uid, err := strconv.ParseUint(u.Fragment, 10, 64)
		if err != nil {
			return ActorPath{}, fmt.Errorf(
				"%w: bad uid fragment %q", ErrInvalidPath, u.Fragment,
			)
		}
		p.UID = uid
		p.HasUID = true
	}

	return p, nil
}

// String renders the path back to its canonical form.
func (p ActorPath) String() string {
	var b strings.Builder
	b.WriteString(p.Scheme)
	b.WriteString("://")
	b.WriteString(p.System)
	if p.Authority != "" {
		b.WriteByte('@')
		b.WriteString(p.Authority)
	}
	for _, seg := range p.Segments {
		b.WriteByte('/')
		b.WriteString(seg)
	}
	if p.HasUID {
		b.WriteByte('#')
		b.WriteString(strconv.FormatUint(p.UID, 10))
	}
	return b.String()
}

// Child returns a new ActorPath with name appended as the final segment. The
// child never carries the parent's uid fragment, since it addresses a
// different actor.
func (p ActorPath) Child(name string) ActorPath {
	child := p
	child.HasUID = false
	child.UID = 0
	child.Segments = append(append([]string{}, p.Segments...), name)
	return child
}

// Parent returns the path one level up, or ErrPathEscapesRoot if p is
// already at the guardian root (a single segment).
func (p ActorPath) Parent() (ActorPath, error) {
	if len(p.Segments) <= 1 {
		return ActorPath{}, ErrPathEscapesRoot
	}
	parent := p
	parent.HasUID = false
	parent.Segments = append([]string{}, p.Segments[:len(p.Segments)-1]...)
	return parent, nil
}

// Resolve applies a sequence of relative segments ("." stays, ".." goes to
// the parent, anything else descends to that named child) starting from p.
func (p ActorPath) Resolve(relative ...string) (ActorPath, error) {
	cur := p
	for _, seg := range relative {
		switch seg {
		case ".", "":
			continue
		case "..":
			var err error
			cur, err = cur.Parent()
			if err != nil {
				return ActorPath{}, err
			}
		default:
			cur = cur.Child(seg)
		}
	}
	return cur, nil
}
