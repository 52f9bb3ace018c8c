// Package buffer implements the packed append-only arenas that back a
// live KeyedDataStore: BufferedKeyedData (the (Key, Value) record
// stream) and BufferedValueArray (the fixed- and variable-length value
// encodings a sealed store emits).
//
// Neither type references the caller's memory: a BufferedKeyedData holds
// its own copies of Keys and values, and a ValueArena is a single byte
// slice. The BufferedKeyedData record arena is a slice of structs, not a
// byte slice.
package buffer
