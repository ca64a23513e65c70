package compiler

import "github.com/plotsim/plotsim/internal/dxf"

// SampleDXF is a small drawing touching every supported entity: a framed
// square, a circle, an arc, a line and a classic polyline.
const SampleDXF = `0
SECTION
2
ENTITIES
0
LWPOLYLINE
8
frame
70
1
10
0
20
0
10
80
20
0
10
80
20
60
10
0
20
60
0
CIRCLE
8
marks
10
40
20
30
40
15
0
ARC
8
marks
10
40
20
30
40
22
50
200
51
340
0
LINE
8
marks
10
10
20
50
11
70
21
50
0
POLYLINE
8
marks
70
0
0
VERTEX
10
10
20
10
0
VERTEX
10
25
20
18
0
VERTEX
10
55
20
18
0
VERTEX
10
70
20
10
0
SEQEND
0
ENDSEC
0
EOF
`

// SampleSource compiles the sample drawing to motion text.
func SampleSource(opts Options) string {
	return Compile(dxf.Parse(SampleDXF), opts)
}
