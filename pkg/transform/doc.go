// Package transform implements the byte transform applied to every sector
// before it reaches the backing file and after it is read back.
//
// The transform is a fixed-alphabet rotation (a Caesar shift): each ASCII
// letter is moved key positions forward within its own case and every other
// byte is left untouched. It is an obfuscation that keeps plaintext letters
// out of the backing file. It is NOT encryption, offers no confidentiality
// against anyone who reads the file, and must never be used to protect
// secrets.
package transform
