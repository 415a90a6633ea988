package tsan

// Tag identifies a registered object type. The zero Tag means "untagged".
type Tag uintptr
