// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package classfile parses raw JVM .class bytes into the attribute
// surface that the rest of the generator needs (access flags, names,
// descriptors, generic signatures, field/method/inner-class tables,
// and the local-variable debug table). It plays the role of the
// "bytecode parser" external dependency described in the system's §6:
// callers read only the fields of the ClassNode struct that Parse
// returns. ClassNode is a plain struct, not an interface, and
// internal/classstub calls Parse directly.
//
// There is no published class-file parsing library in this project's
// dependency set, so this package reads the binary layout directly
// (constant pool, access flags, fields, methods, attributes) the way a
// hand-rolled JVM loader would.
package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Access flag bits, from table 4.1-B of the JVM specification.
const (
	AccPublic    = 0x0001
	AccPrivate   = 0x0002
	AccProtected = 0x0004
	AccStatic    = 0x0008
	AccFinal     = 0x0010
	AccSuper     = 0x0020
	AccBridge    = 0x0040
	AccVarargs   = 0x0080
	AccInterface = 0x0200
	AccAbstract  = 0x0400
	AccSynthetic = 0x1000
	AccAnnotation = 0x2000
	AccEnum      = 0x4000
)

const magic = 0xCAFEBABE

// cpTag enumerates constant_pool entry kinds.
type cpTag byte

const (
	tagUTF8              cpTag = 1
	tagInteger           cpTag = 3
	tagFloat             cpTag = 4
	tagLong              cpTag = 5
	tagDouble            cpTag = 6
	tagClass             cpTag = 7
	tagString            cpTag = 8
	tagFieldref          cpTag = 9
	tagMethodref         cpTag = 10
	tagInterfaceMethodref cpTag = 11
	tagNameAndType       cpTag = 12
	tagMethodHandle      cpTag = 15
	tagMethodType        cpTag = 16
	tagDynamic           cpTag = 17
	tagInvokeDynamic     cpTag = 18
	tagModule            cpTag = 19
	tagPackage           cpTag = 20
)

type cpEntry struct {
	tag      cpTag
	utf8     string
	classIdx uint16 // for tagClass: index of the UTF8 name
}

// LocalVar is one entry of a method's LocalVariableTable attribute.
type LocalVar struct {
	Slot int
	Name string
}

// FieldNode describes one field member.
type FieldNode struct {
	Access     int
	Name       string
	Desc       string
	Signature  string // "" if no Signature attribute is present
	Synthetic  bool
}

// MethodNode describes one method or constructor member.
type MethodNode struct {
	Access        int
	Name          string
	Desc          string
	Signature     string // "" if no Signature attribute is present
	Synthetic     bool
	Bridge        bool
	Varargs       bool
	LocalVariables []LocalVar // nil if no debug table is present
}

// InnerClassNode is one entry of the InnerClasses attribute.
type InnerClassNode struct {
	Name       string // this entry's own internal name
	OuterName  string // "" if this entry has no enclosing class (top-level or anonymous)
	InnerName  string // "" for anonymous classes
	Access     int
}

// ClassNode is the attribute surface exposed by the parser, matching
// the adapter interface described in §6 of the design.
type ClassNode struct {
	Access       int
	Name         string // internal name, e.g. "java/util/Map$Entry"
	SuperName    string // "" only for java/lang/Object
	Interfaces   []string
	Signature    string // "" if no Signature attribute is present
	Fields       []FieldNode
	Methods      []MethodNode
	InnerClasses []InnerClassNode
	OuterMethod  bool // true if an EnclosingMethod attribute names an enclosing method (anonymous/local class)
}

// Parse decodes raw .class bytes into a ClassNode.
func Parse(data []byte) (*ClassNode, error) {
	r := &reader{buf: data}

	got, err := r.u4()
	if err != nil {
		return nil, err
	}
	if got != magic {
		return nil, fmt.Errorf("classfile: bad magic number %#x", got)
	}
	if _, err := r.u2(); err != nil { // minor_version
		return nil, err
	}
	if _, err := r.u2(); err != nil { // major_version
		return nil, err
	}

	pool, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}

	access, err := r.u2()
	if err != nil {
		return nil, err
	}
	thisIdx, err := r.u2()
	if err != nil {
		return nil, err
	}
	superIdx, err := r.u2()
	if err != nil {
		return nil, err
	}

	cn := &ClassNode{Access: int(access)}
	cn.Name, err = pool.className(thisIdx)
	if err != nil {
		return nil, fmt.Errorf("classfile: this_class: %w", err)
	}
	if superIdx != 0 {
		cn.SuperName, err = pool.className(superIdx)
		if err != nil {
			return nil, fmt.Errorf("classfile: super_class: %w", err)
		}
	}

	ifaceCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(ifaceCount); i++ {
		idx, err := r.u2()
		if err != nil {
			return nil, err
		}
		name, err := pool.className(idx)
		if err != nil {
			return nil, fmt.Errorf("classfile: interface %d: %w", i, err)
		}
		cn.Interfaces = append(cn.Interfaces, name)
	}

	fieldCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(fieldCount); i++ {
		f, err := readField(r, pool)
		if err != nil {
			return nil, fmt.Errorf("classfile: field %d: %w", i, err)
		}
		cn.Fields = append(cn.Fields, *f)
	}

	methodCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(methodCount); i++ {
		m, err := readMethod(r, pool)
		if err != nil {
			return nil, fmt.Errorf("classfile: method %d: %w", i, err)
		}
		cn.Methods = append(cn.Methods, *m)
	}

	attrCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(attrCount); i++ {
		name, info, err := readAttribute(r, pool)
		if err != nil {
			return nil, fmt.Errorf("classfile: class attribute %d: %w", i, err)
		}
		switch name {
		case "Signature":
			idx := binary.BigEndian.Uint16(info)
			cn.Signature, err = pool.utf8(idx)
			if err != nil {
				return nil, err
			}
		case "InnerClasses":
			ics, err := parseInnerClasses(info, pool)
			if err != nil {
				return nil, err
			}
			cn.InnerClasses = ics
		case "EnclosingMethod":
			if len(info) >= 4 {
				methodIdx := binary.BigEndian.Uint16(info[2:4])
				if methodIdx != 0 {
					cn.OuterMethod = true
				}
			}
		}
	}

	return cn, nil
}

func readField(r *reader, pool *constantPool) (*FieldNode, error) {
	access, err := r.u2()
	if err != nil {
		return nil, err
	}
	nameIdx, err := r.u2()
	if err != nil {
		return nil, err
	}
	descIdx, err := r.u2()
	if err != nil {
		return nil, err
	}
	f := &FieldNode{Access: int(access)}
	f.Name, err = pool.utf8(nameIdx)
	if err != nil {
		return nil, err
	}
	f.Desc, err = pool.utf8(descIdx)
	if err != nil {
		return nil, err
	}
	f.Synthetic = f.Access&AccSynthetic != 0

	attrCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(attrCount); i++ {
		name, info, err := readAttribute(r, pool)
		if err != nil {
			return nil, err
		}
		if name == "Signature" {
			idx := binary.BigEndian.Uint16(info)
			f.Signature, err = pool.utf8(idx)
			if err != nil {
				return nil, err
			}
		}
		if name == "Synthetic" {
			f.Synthetic = true
		}
	}
	return f, nil
}

func readMethod(r *reader, pool *constantPool) (*MethodNode, error) {
	access, err := r.u2()
	if err != nil {
		return nil, err
	}
	nameIdx, err := r.u2()
	if err != nil {
		return nil, err
	}
	descIdx, err := r.u2()
	if err != nil {
		return nil, err
	}
	m := &MethodNode{Access: int(access)}
	m.Name, err = pool.utf8(nameIdx)
	if err != nil {
		return nil, err
	}
	m.Desc, err = pool.utf8(descIdx)
	if err != nil {
		return nil, err
	}
	m.Synthetic = m.Access&AccSynthetic != 0
	m.Bridge = m.Access&AccBridge != 0
	m.Varargs = m.Access&AccVarargs != 0

	attrCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(attrCount); i++ {
		name, info, err := readAttribute(r, pool)
		if err != nil {
			return nil, err
		}
		switch name {
		case "Signature":
			idx := binary.BigEndian.Uint16(info)
			m.Signature, err = pool.utf8(idx)
			if err != nil {
				return nil, err
			}
		case "Synthetic":
			m.Synthetic = true
		case "Code":
			lvs, err := parseCodeLocalVars(info, pool)
			if err != nil {
				return nil, err
			}
			m.LocalVariables = lvs
		}
	}
	return m, nil
}

// readAttribute reads one attribute_info record: name + raw info bytes.
func readAttribute(r *reader, pool *constantPool) (string, []byte, error) {
	nameIdx, err := r.u2()
	if err != nil {
		return "", nil, err
	}
	name, err := pool.utf8(nameIdx)
	if err != nil {
		return "", nil, err
	}
	length, err := r.u4()
	if err != nil {
		return "", nil, err
	}
	info, err := r.bytes(int(length))
	if err != nil {
		return "", nil, err
	}
	return name, info, nil
}

func parseInnerClasses(info []byte, pool *constantPool) ([]InnerClassNode, error) {
	r := &reader{buf: info}
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	out := make([]InnerClassNode, 0, count)
	for i := 0; i < int(count); i++ {
		innerIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		outerIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		innerNameIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		access, err := r.u2()
		if err != nil {
			return nil, err
		}
		ic := InnerClassNode{Access: int(access)}
		ic.Name, err = pool.className(innerIdx)
		if err != nil {
			return nil, err
		}
		if outerIdx != 0 {
			ic.OuterName, err = pool.className(outerIdx)
			if err != nil {
				return nil, err
			}
		}
		if innerNameIdx != 0 {
			ic.InnerName, err = pool.utf8(innerNameIdx)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, ic)
	}
	return out, nil
}

// parseCodeLocalVars walks a Code attribute's own nested attribute list
// looking for LocalVariableTable, ignoring bytecode and exception data
// (this reader never executes code, only reads debug metadata).
func parseCodeLocalVars(info []byte, pool *constantPool) ([]LocalVar, error) {
	r := &reader{buf: info}
	if _, err := r.u2(); err != nil { // max_stack
		return nil, err
	}
	if _, err := r.u2(); err != nil { // max_locals
		return nil, err
	}
	codeLen, err := r.u4()
	if err != nil {
		return nil, err
	}
	if _, err := r.bytes(int(codeLen)); err != nil {
		return nil, err
	}
	excCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	if _, err := r.bytes(int(excCount) * 8); err != nil {
		return nil, err
	}
	attrCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	var lvs []LocalVar
	for i := 0; i < int(attrCount); i++ {
		name, sub, err := readAttribute(r, pool)
		if err != nil {
			return nil, err
		}
		if name != "LocalVariableTable" {
			continue
		}
		sr := &reader{buf: sub}
		n, err := sr.u2()
		if err != nil {
			return nil, err
		}
		for j := 0; j < int(n); j++ {
			if _, err := sr.u2(); err != nil { // start_pc
				return nil, err
			}
			if _, err := sr.u2(); err != nil { // length
				return nil, err
			}
			nameIdx, err := sr.u2()
			if err != nil {
				return nil, err
			}
			if _, err := sr.u2(); err != nil { // descriptor_index
				return nil, err
			}
			slot, err := sr.u2()
			if err != nil {
				return nil, err
			}
			vname, err := pool.utf8(nameIdx)
			if err != nil {
				return nil, err
			}
			lvs = append(lvs, LocalVar{Slot: int(slot), Name: vname})
		}
	}
	return lvs, nil
}

// constantPool resolves indices into the class file's constant pool.
// Long and Double entries occupy two consecutive slots (per the JVM
// spec's historical quirk); this reader leaves the following slot empty
// to preserve correct indexing for everything after it.
type constantPool struct {
	entries []cpEntry // index 0 is unused, matching JVM 1-based indexing
}

func (p *constantPool) utf8(idx uint16) (string, error) {
	if int(idx) >= len(p.entries) {
		return "", fmt.Errorf("classfile: constant pool index %d out of range", idx)
	}
	e := p.entries[idx]
	if e.tag != tagUTF8 {
		return "", fmt.Errorf("classfile: constant pool index %d is not UTF8 (tag %d)", idx, e.tag)
	}
	return e.utf8, nil
}

func (p *constantPool) className(idx uint16) (string, error) {
	if int(idx) >= len(p.entries) {
		return "", fmt.Errorf("classfile: constant pool index %d out of range", idx)
	}
	e := p.entries[idx]
	if e.tag != tagClass {
		return "", fmt.Errorf("classfile: constant pool index %d is not a class (tag %d)", idx, e.tag)
	}
	return p.utf8(e.classIdx)
}

func readConstantPool(r *reader) (*constantPool, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	pool := &constantPool{entries: make([]cpEntry, count)}
	for i := 1; i < int(count); i++ {
		tagByte, err := r.u1()
		if err != nil {
			return nil, err
		}
		tag := cpTag(tagByte)
		switch tag {
		case tagUTF8:
			length, err := r.u2()
			if err != nil {
				return nil, err
			}
			raw, err := r.bytes(int(length))
			if err != nil {
				return nil, err
			}
			pool.entries[i] = cpEntry{tag: tag, utf8: string(raw)}
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			if _, err := r.bytes(4); err != nil {
				return nil, err
			}
			pool.entries[i] = cpEntry{tag: tag}
		case tagLong, tagDouble:
			if _, err := r.bytes(8); err != nil {
				return nil, err
			}
			pool.entries[i] = cpEntry{tag: tag}
			i++ // long/double occupy two constant pool slots
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			idx, err := r.u2()
			if err != nil {
				return nil, err
			}
			pool.entries[i] = cpEntry{tag: tag, classIdx: idx}
		case tagMethodHandle:
			if _, err := r.bytes(3); err != nil {
				return nil, err
			}
			pool.entries[i] = cpEntry{tag: tag}
		default:
			return nil, fmt.Errorf("classfile: unknown constant pool tag %d at index %d", tagByte, i)
		}
	}
	return pool, nil
}

// reader is a cursor over a byte slice with JVM big-endian fixed-width
// reads, used for both the top-level class file and nested attributes.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) u1() (byte, error) {
	if r.pos+1 > len(r.buf) {
		return 0, bytes.ErrTooLarge
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u2() (uint16, error) {
	if r.pos+2 > len(r.buf) {
		return 0, fmt.Errorf("classfile: unexpected end of data reading u2 at offset %d", r.pos)
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u4() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, fmt.Errorf("classfile: unexpected end of data reading u4 at offset %d", r.pos)
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("classfile: unexpected end of data reading %d bytes at offset %d", n, r.pos)
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}
