package program

// SampleID is the public program every client can open without an account.
// Its source is compiler.SampleDXF.
const SampleID = "prog_sample"
