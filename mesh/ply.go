package mesh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// plyProperty describes one property of a PLY element.
type plyProperty struct {
	name      string
	typ       string
	isList    bool
	countType string
	itemType  string
}

// plyElement describes one element block of a PLY header.
type plyElement struct {
	name       string
	count      int
	properties []plyProperty
}

// plyHeader is the parsed header of a PLY file.
type plyHeader struct {
	format   string // "ascii" or "binary_little_endian"
	elements []plyElement
}

// LoadScanFile reads and parses a PLY surface scan from disk.
func LoadScanFile(path string) (*TriangleMesh, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("scan file not found: %s", path)
		}
		return nil, fmt.Errorf("opening scan file: %w", err)
	}
	defer f.Close()

	m, err := ParseScan(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// ParseScan parses PLY data from a reader. ASCII and binary little-endian
// formats are supported; vertex x/y/z and the face vertex index list are
// read, any other properties are skipped. A mesh with no vertices is an
// error; a mesh with no faces is returned as-is (point-cloud scan).
func ParseScan(r io.Reader) (*TriangleMesh, error) {
	br := bufio.NewReader(r)

	header, err := parsePLYHeader(br)
	if err != nil {
		return nil, err
	}

	m := &TriangleMesh{}
	for _, elem := range header.elements {
		switch elem.name {
		case "vertex":
			if err := readVertices(br, header.format, elem, m); err != nil {
				return nil, err
			}
		case "face":
			if err := readFaces(br, header.format, elem, m); err != nil {
				return nil, err
			}
		default:
			if err := skipElement(br, header.format, elem); err != nil {
				return nil, err
			}
		}
	}

	if m.IsEmpty() {
		return nil, fmt.Errorf("no vertices found in scan")
	}
	for _, tri := range m.Triangles {
		for i := 0; i < 3; i++ {
			if tri[i] < 0 || tri[i] >= len(m.Vertices) {
				return nil, fmt.Errorf("face references vertex %d, scan has %d vertices", tri[i], len(m.Vertices))
			}
		}
	}
	return m, nil
}

// parsePLYHeader reads the header up to and including end_header.
func parsePLYHeader(br *bufio.Reader) (*plyHeader, error) {
	magic, err := readHeaderLine(br)
	if err != nil {
		return nil, err
	}
	if magic != "ply" {
		return nil, fmt.Errorf("not a PLY file (magic %q)", magic)
	}

	header := &plyHeader{}
	for {
		line, err := readHeaderLine(br)
		if err != nil {
			return nil, err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "format":
			if len(fields) < 2 {
				return nil, fmt.Errorf("malformed format line: %q", line)
			}
			header.format = fields[1]
			if header.format != "ascii" && header.format != "binary_little_endian" {
				return nil, fmt.Errorf("unsupported PLY format: %s", header.format)
			}
		case "comment", "obj_info":
			// ignored
		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("malformed element line: %q", line)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("bad element count in %q", line)
			}
			header.elements = append(header.elements, plyElement{name: fields[1], count: count})
		case "property":
			if len(header.elements) == 0 {
				return nil, fmt.Errorf("property before any element: %q", line)
			}
			elem := &header.elements[len(header.elements)-1]
			switch {
			case len(fields) == 5 && fields[1] == "list":
				elem.properties = append(elem.properties, plyProperty{
					name:      fields[4],
					isList:    true,
					countType: fields[2],
					itemType:  fields[3],
				})
			case len(fields) == 3:
				elem.properties = append(elem.properties, plyProperty{name: fields[2], typ: fields[1]})
			default:
				return nil, fmt.Errorf("malformed property line: %q", line)
			}
		case "end_header":
			if header.format == "" {
				return nil, fmt.Errorf("PLY header missing format line")
			}
			return header, nil
		default:
			return nil, fmt.Errorf("unrecognized header line: %q", line)
		}
	}
}

func readHeaderLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("truncated PLY header: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// plyTypeSize returns the byte width of a PLY scalar type.
func plyTypeSize(typ string) (int, error) {
	switch typ {
	case "char", "int8", "uchar", "uint8":
		return 1, nil
	case "short", "int16", "ushort", "uint16":
		return 2, nil
	case "int", "int32", "uint", "uint32", "float", "float32":
		return 4, nil
	case "double", "float64":
		return 8, nil
	}
	return 0, fmt.Errorf("unknown PLY type: %s", typ)
}

// readBinaryScalar reads one little-endian scalar of the given type as float64.
func readBinaryScalar(br *bufio.Reader, typ string) (float64, error) {
	size, err := plyTypeSize(typ)
	if err != nil {
		return 0, err
	}
	var buf [8]byte
	if _, err := io.ReadFull(br, buf[:size]); err != nil {
		return 0, fmt.Errorf("truncated PLY body: %w", err)
	}
	switch typ {
	case "char", "int8":
		return float64(int8(buf[0])), nil
	case "uchar", "uint8":
		return float64(buf[0]), nil
	case "short", "int16":
		return float64(int16(binary.LittleEndian.Uint16(buf[:2]))), nil
	case "ushort", "uint16":
		return float64(binary.LittleEndian.Uint16(buf[:2])), nil
	case "int", "int32":
		return float64(int32(binary.LittleEndian.Uint32(buf[:4]))), nil
	case "uint", "uint32":
		return float64(binary.LittleEndian.Uint32(buf[:4])), nil
	case "float", "float32":
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[:4]))), nil
	case "double", "float64":
		return math.Float64frombits(binary.LittleEndian.Uint64(buf[:8])), nil
	}
	return 0, fmt.Errorf("unknown PLY type: %s", typ)
}

// readASCIIRow reads one whitespace-separated data row.
func readASCIIRow(br *bufio.Reader) ([]string, error) {
	for {
		line, err := br.ReadString('\n')
		fields := strings.Fields(line)
		if len(fields) > 0 {
			return fields, nil
		}
		if err != nil {
			return nil, fmt.Errorf("truncated PLY body: %w", err)
		}
	}
}

func readVertices(br *bufio.Reader, format string, elem plyElement, m *TriangleMesh) error {
	xi, yi, zi := -1, -1, -1
	for i, p := range elem.properties {
		switch p.name {
		case "x":
			xi = i
		case "y":
			yi = i
		case "z":
			zi = i
		}
	}
	if xi == -1 || yi == -1 || zi == -1 {
		return fmt.Errorf("vertex element missing x/y/z properties")
	}

	m.Vertices = make([]Vec3, 0, elem.count)
	values := make([]float64, len(elem.properties))
	for n := 0; n < elem.count; n++ {
		if format == "ascii" {
			fields, err := readASCIIRow(br)
			if err != nil {
				return err
			}
			if len(fields) < len(elem.properties) {
				return fmt.Errorf("vertex row %d has %d values, want %d", n, len(fields), len(elem.properties))
			}
			for i := range elem.properties {
				v, err := strconv.ParseFloat(fields[i], 64)
				if err != nil {
					return fmt.Errorf("vertex row %d: %w", n, err)
				}
				values[i] = v
			}
		} else {
			for i, p := range elem.properties {
				if p.isList {
					return fmt.Errorf("list property %q on vertex element not supported", p.name)
				}
				v, err := readBinaryScalar(br, p.typ)
				if err != nil {
					return err
				}
				values[i] = v
			}
		}
		m.Vertices = append(m.Vertices, Vec3{X: values[xi], Y: values[yi], Z: values[zi]})
	}
	return nil
}

func readFaces(br *bufio.Reader, format string, elem plyElement, m *TriangleMesh) error {
	listIdx := -1
	for i, p := range elem.properties {
		if p.isList && (p.name == "vertex_indices" || p.name == "vertex_index") {
			listIdx = i
			break
		}
	}
	if listIdx == -1 {
		return fmt.Errorf("face element missing vertex index list")
	}

	m.Triangles = make([][3]int, 0, elem.count)
	for n := 0; n < elem.count; n++ {
		var indices []int
		if format == "ascii" {
			fields, err := readASCIIRow(br)
			if err != nil {
				return err
			}
			count, err := strconv.Atoi(fields[0])
			if err != nil || len(fields) < 1+count {
				return fmt.Errorf("malformed face row %d", n)
			}
			if count < 3 {
				return fmt.Errorf("face row %d has %d vertices", n, count)
			}
			indices = make([]int, count)
			for i := 0; i < count; i++ {
				v, err := strconv.Atoi(fields[1+i])
				if err != nil {
					return fmt.Errorf("face row %d: %w", n, err)
				}
				indices[i] = v
			}
		} else {
			for i, p := range elem.properties {
				if i == listIdx {
					countF, err := readBinaryScalar(br, p.countType)
					if err != nil {
						return err
					}
					count := int(countF)
					if count < 3 {
						return fmt.Errorf("face row %d has %d vertices", n, count)
					}
					indices = make([]int, count)
					for j := 0; j < count; j++ {
						v, err := readBinaryScalar(br, p.itemType)
						if err != nil {
							return err
						}
						indices[j] = int(v)
					}
				} else if p.isList {
					countF, err := readBinaryScalar(br, p.countType)
					if err != nil {
						return err
					}
					for j := 0; j < int(countF); j++ {
						if _, err := readBinaryScalar(br, p.itemType); err != nil {
							return err
						}
					}
				} else {
					if _, err := readBinaryScalar(br, p.typ); err != nil {
						return err
					}
				}
			}
		}

		// Fan-triangulate polygons with more than three vertices.
		for i := 1; i+1 < len(indices); i++ {
			m.Triangles = append(m.Triangles, [3]int{indices[0], indices[i], indices[i+1]})
		}
	}
	return nil
}

// skipElement consumes an element block without interpreting it.
func skipElement(br *bufio.Reader, format string, elem plyElement) error {
	for n := 0; n < elem.count; n++ {
		if format == "ascii" {
			if _, err := readASCIIRow(br); err != nil {
				return err
			}
			continue
		}
		for _, p := range elem.properties {
			if p.isList {
				countF, err := readBinaryScalar(br, p.countType)
				if err != nil {
					return err
				}
				for j := 0; j < int(countF); j++ {
					if _, err := readBinaryScalar(br, p.itemType); err != nil {
						return err
					}
				}
			} else {
				if _, err := readBinaryScalar(br, p.typ); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
