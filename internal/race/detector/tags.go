package detector

// tagInfo describes a registered external object type.
type tagInfo struct {
	objectType string
	header     string
}

// RegisterTag registers an object type and returns its tag. Tags start at 1;
// 0 means "untagged".
func (d *Detector) RegisterTag(objectType string) uintptr {
	d.tagsMu.Lock()
	d.tags = append(d.tags, tagInfo{objectType: objectType})
	tag := uintptr(len(d.tags))
	d.tagsMu.Unlock()

	d.log.Debug("registered object tag", "tag", tag, "type", objectType)
	return tag
}

// RegisterHeader sets the line printed under the warning banner of races on
// objects with the given tag.
func (d *Detector) RegisterHeader(tag uintptr, header string) {
	d.tagsMu.Lock()
	defer d.tagsMu.Unlock()
	if tag == 0 || tag > uintptr(len(d.tags)) {
		d.log.Warn("header for unknown tag ignored", "tag", tag)
		return
	}
	d.tags[tag-1].header = header
}

// AssignTag attaches tag to the object at addr. Accesses reported without a
// tag fall back to it.
func (d *Detector) AssignTag(addr, tag uintptr) {
	vs := d.shadowMemory.GetOrCreate(addr)
	vs.Lock()
	vs.Tag = tag
	vs.Unlock()
}

// lookupTag returns the registration for tag.
func (d *Detector) lookupTag(tag uintptr) (tagInfo, bool) {
	if tag == 0 {
		return tagInfo{}, false
	}
	d.tagsMu.RLock()
	defer d.tagsMu.RUnlock()
	if tag > uintptr(len(d.tags)) {
		return tagInfo{}, false
	}
	return d.tags[tag-1], true
}
