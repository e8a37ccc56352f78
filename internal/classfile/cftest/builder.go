// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cftest builds synthetic .class byte streams for tests, so the
// rest of the generator can be exercised without a real JVM or a corpus
// of compiled fixtures.
package cftest

import (
	"bytes"
	"encoding/binary"
)

// Builder assembles the constant pool and member tables of one class
// file incrementally, mirroring the structural order a real compiler
// would emit them in.
type Builder struct {
	utf8   []string
	access int
	name   string
	super  string
	ifaces []string
	sig    string

	fields  []member
	methods []method

	innerClasses []innerClass
	outerMethod  bool
}

type member struct {
	access    int
	name      string
	desc      string
	signature string
}

type method struct {
	member
	localVars []localVar
}

type localVar struct {
	slot int
	name string
}

type innerClass struct {
	name      string
	outerName string
	innerName string
	access    int
}

// New starts a builder for a class with the given internal name (e.g.
// "java/util/Map$Entry") and superclass internal name ("" for Object).
func New(name, super string) *Builder {
	return &Builder{name: name, super: super}
}

// Access sets the class access_flags.
func (b *Builder) Access(access int) *Builder { b.access = access; return b }

// Signature sets the class's generic Signature attribute.
func (b *Builder) Signature(sig string) *Builder { b.sig = sig; return b }

// Interface appends one implemented interface's internal name.
func (b *Builder) Interface(name string) *Builder {
	b.ifaces = append(b.ifaces, name)
	return b
}

// Field appends one field member.
func (b *Builder) Field(access int, name, desc, signature string) *Builder {
	b.fields = append(b.fields, member{access, name, desc, signature})
	return b
}

// Method appends one method member with no debug-name info.
func (b *Builder) Method(access int, name, desc, signature string) *Builder {
	b.methods = append(b.methods, method{member: member{access, name, desc, signature}})
	return b
}

// MethodWithLocals appends one method member plus a LocalVariableTable.
func (b *Builder) MethodWithLocals(access int, name, desc, signature string, locals map[int]string) *Builder {
	m := method{member: member{access, name, desc, signature}}
	for slot, n := range locals {
		m.localVars = append(m.localVars, localVar{slot, n})
	}
	b.methods = append(b.methods, m)
	return b
}

// InnerClass appends one InnerClasses attribute entry.
func (b *Builder) InnerClass(name, outerName, innerName string, access int) *Builder {
	b.innerClasses = append(b.innerClasses, innerClass{name, outerName, innerName, access})
	return b
}

// OuterMethod marks the class as local/anonymous (an EnclosingMethod
// attribute whose method_index is non-zero).
func (b *Builder) OuterMethod() *Builder { b.outerMethod = true; return b }

// Bytes renders the accumulated class description into real .class
// bytes, building a deduplicated constant pool from every string used.
func (b *Builder) Bytes() []byte {
	cp := newPoolBuilder()

	thisIdx := cp.class(b.name)
	var superIdx uint16
	if b.super != "" {
		superIdx = cp.class(b.super)
	}
	ifaceIdxs := make([]uint16, len(b.ifaces))
	for i, iface := range b.ifaces {
		ifaceIdxs[i] = cp.class(iface)
	}

	var sigIdx uint16
	if b.sig != "" {
		sigIdx = cp.utf8(b.sig)
	}
	signatureNameIdx := cp.utf8("Signature")

	innerClassesNameIdx := cp.utf8("InnerClasses")
	enclosingMethodNameIdx := cp.utf8("EnclosingMethod")
	codeNameIdx := cp.utf8("Code")
	lvtNameIdx := cp.utf8("LocalVariableTable")

	var buf bytes.Buffer
	w := &writer{buf: &buf}

	// Fields/methods/attributes are built into separate buffers first so
	// the constant pool (which must precede them in the file, but is
	// only fully known once every name/desc string has been interned)
	// can be written once, up front.
	var fieldsBuf bytes.Buffer
	fw := &writer{buf: &fieldsBuf}
	fw.u2(uint16(len(b.fields)))
	for _, f := range b.fields {
		fw.u2(uint16(f.access))
		fw.u2(cp.utf8(f.name))
		fw.u2(cp.utf8(f.desc))
		if f.signature != "" {
			fw.u2(1)
			fw.u2(signatureNameIdx)
			fw.u4(2)
			fw.u2(cp.utf8(f.signature))
		} else {
			fw.u2(0)
		}
	}

	var methodsBuf bytes.Buffer
	mw := &writer{buf: &methodsBuf}
	mw.u2(uint16(len(b.methods)))
	for _, m := range b.methods {
		mw.u2(uint16(m.access))
		mw.u2(cp.utf8(m.name))
		mw.u2(cp.utf8(m.desc))

		attrCount := 0
		if m.signature != "" {
			attrCount++
		}
		if m.localVars != nil {
			attrCount++
		}
		mw.u2(uint16(attrCount))
		if m.signature != "" {
			mw.u2(signatureNameIdx)
			mw.u4(2)
			mw.u2(cp.utf8(m.signature))
		}
		if m.localVars != nil {
			var lvtBuf bytes.Buffer
			lw := &writer{buf: &lvtBuf}
			lw.u2(uint16(len(m.localVars)))
			for _, lv := range m.localVars {
				lw.u2(0) // start_pc
				lw.u2(1) // length
				lw.u2(cp.utf8(lv.name))
				lw.u2(cp.utf8("I")) // descriptor_index (unused by the reader)
				lw.u2(uint16(lv.slot))
			}

			var codeAttrsBuf bytes.Buffer
			cw := &writer{buf: &codeAttrsBuf}
			cw.u2(1) // one nested attribute: LocalVariableTable
			cw.u2(lvtNameIdx)
			cw.u4(uint32(lvtBuf.Len()))
			cw.raw(lvtBuf.Bytes())

			var codeBodyBuf bytes.Buffer
			cbw := &writer{buf: &codeBodyBuf}
			cbw.u2(1) // max_stack
			cbw.u2(1) // max_locals
			cbw.u4(1) // code_length
			cbw.raw([]byte{0x00})
			cbw.u2(0) // exception_table_length
			cbw.raw(codeAttrsBuf.Bytes())

			mw.u2(codeNameIdx)
			mw.u4(uint32(codeBodyBuf.Len()))
			mw.raw(codeBodyBuf.Bytes())
		}
	}

	var innerClassesBuf bytes.Buffer
	if len(b.innerClasses) > 0 {
		icw := &writer{buf: &innerClassesBuf}
		icw.u2(uint16(len(b.innerClasses)))
		for _, ic := range b.innerClasses {
			icw.u2(cp.class(ic.name))
			if ic.outerName != "" {
				icw.u2(cp.class(ic.outerName))
			} else {
				icw.u2(0)
			}
			if ic.innerName != "" {
				icw.u2(cp.utf8(ic.innerName))
			} else {
				icw.u2(0)
			}
			icw.u2(uint16(ic.access))
		}
	}

	classAttrCount := 0
	if b.sig != "" {
		classAttrCount++
	}
	if len(b.innerClasses) > 0 {
		classAttrCount++
	}
	if b.outerMethod {
		classAttrCount++
	}

	w.u4(0xCAFEBABE)
	w.u2(0) // minor
	w.u2(52) // major: Java 8
	cp.writeTo(w)
	w.u2(uint16(b.access))
	w.u2(thisIdx)
	w.u2(superIdx)
	w.u2(uint16(len(ifaceIdxs)))
	for _, idx := range ifaceIdxs {
		w.u2(idx)
	}
	w.raw(fieldsBuf.Bytes())
	w.raw(methodsBuf.Bytes())
	w.u2(uint16(classAttrCount))
	if b.sig != "" {
		w.u2(signatureNameIdx)
		w.u4(2)
		w.u2(sigIdx)
	}
	if len(b.innerClasses) > 0 {
		w.u2(innerClassesNameIdx)
		w.u4(uint32(innerClassesBuf.Len()))
		w.raw(innerClassesBuf.Bytes())
	}
	if b.outerMethod {
		w.u2(enclosingMethodNameIdx)
		w.u4(4)
		w.u2(cp.class(b.name)) // class_index (arbitrary non-zero, unused by the reader)
		w.u2(1)                // method_index: non-zero marks "has an outer method"
	}

	return buf.Bytes()
}

// poolBuilder interns UTF8 and Class constant-pool entries, assigning
// each distinct string a stable 1-based index.
type poolBuilder struct {
	utf8Index  map[string]uint16
	classIndex map[string]uint16
	utf8s      []string
	classes    []uint16 // utf8 index for each interned class name, in order
	next       uint16
}

func newPoolBuilder() *poolBuilder {
	return &poolBuilder{
		utf8Index:  make(map[string]uint16),
		classIndex: make(map[string]uint16),
		next:       1,
	}
}

func (p *poolBuilder) utf8(s string) uint16 {
	if idx, ok := p.utf8Index[s]; ok {
		return idx
	}
	idx := p.next
	p.next++
	p.utf8Index[s] = idx
	p.utf8s = append(p.utf8s, s)
	return idx
}

func (p *poolBuilder) class(internalName string) uint16 {
	if idx, ok := p.classIndex[internalName]; ok {
		return idx
	}
	nameIdx := p.utf8(internalName)
	idx := p.next
	p.next++
	p.classIndex[internalName] = idx
	p.classes = append(p.classes, nameIdx)
	return idx
}

// writeTo emits the full constant_pool_count + constant_pool sequence.
// Because utf8() and class() assign indices in a single incrementing
// sequence as callers ask for them, entries must be re-emitted in that
// same assigned order; we reconstruct that order here by tag lookup.
func (p *poolBuilder) writeTo(w *writer) {
	total := p.next // count is 1 + number of entries (index 0 unused)
	w.u2(total)

	// Re-derive per-index records in assignment order.
	type rec struct {
		isClass bool
		utf8    string
		classOf uint16
	}
	byIndex := make(map[uint16]rec, total)
	for s, idx := range p.utf8Index {
		byIndex[idx] = rec{utf8: s}
	}
	for name, idx := range p.classIndex {
		byIndex[idx] = rec{isClass: true, classOf: p.utf8Index[name]}
	}
	for i := uint16(1); i < total; i++ {
		r := byIndex[i]
		if r.isClass {
			w.u1(7) // tagClass
			w.u2(r.classOf)
		} else {
			w.u1(1) // tagUTF8
			raw := []byte(r.utf8)
			w.u2(uint16(len(raw)))
			w.raw(raw)
		}
	}
}

type writer struct {
	buf *bytes.Buffer
}

func (w *writer) u1(v byte)      { w.buf.WriteByte(v) }
func (w *writer) u2(v uint16)    { var b [2]byte; binary.BigEndian.PutUint16(b[:], v); w.buf.Write(b[:]) }
func (w *writer) u4(v uint32)    { var b [4]byte; binary.BigEndian.PutUint32(b[:], v); w.buf.Write(b[:]) }
func (w *writer) raw(b []byte)   { w.buf.Write(b) }
