package store

// Encode and Decode expose the value codec to tests.
var (
	Encode = encode
	Decode = decode
)
