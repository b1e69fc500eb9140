// Package vm implements the PLC runtime model shared by the analyzer, the
// interpreter and the Java generator.
//
// This package contains:
//   - The closed catalog of static types and the assignability relation
//   - Runtime values backed by math/big and apd decimals
//   - Lexical scopes holding variable and function bindings
//   - Integer and decimal arithmetic
//   - The builtins scope and runtime error kinds
package vm
