package ui

// iconBytes is a 16x16 PNG.
var iconBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x1a, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0x18, 0x05, 0x70,
	0x20, 0x9f, 0xff, 0xfa, 0x3f, 0x29, 0x78, 0xd4, 0x80, 0xe1, 0x69, 0xc0,
	0x08, 0x06, 0x00, 0xf2, 0xf0, 0xed, 0x01, 0xe1, 0xab, 0x49, 0x4d, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
