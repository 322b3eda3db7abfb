// Package makemkv drives makemkvcon in robot mode.
//
// Devices enumerates optical drives, Probe reads a disc into a disc.Disc,
// and Rip saves selected titles to MKV while reporting progress. Every
// invocation runs under a Lease so only one makemkvcon process touches the
// drives at a time. Command execution sits behind the Executor interface so
// tests can replay canned robot output.
package makemkv
