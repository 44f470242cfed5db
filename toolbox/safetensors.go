package toolbox

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"slices"
)

// Readers of the format refuse headers over 100MB.
const maxSafeTensorsHeaderLen = 100_000_000

type SafeTensorInfo struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets []int  `json:"data_offsets"`
}

// WriteSafeTensors writes tensors in the safetensors layout: a little-endian
// uint64 header length, a JSON header, then the raw F32 data in key order.
func WriteSafeTensors(w io.Writer, tensors map[string]*AF32) error {
	header := map[string]SafeTensorInfo{}
	dataOffset := 0

	keys := []string{}
	for k := range tensors {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		begin := dataOffset
		dataOffset += len(tensors[k].V) * 4
		end := dataOffset

		header[k] = SafeTensorInfo{
			DType:       "F32",
			Shape:       tensors[k].Shape,
			DataOffsets: []int{begin, end},
		}
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("while marshaling header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerBytes))); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}

	if _, err := w.Write(headerBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	for _, k := range keys {
		if err := binary.Write(w, binary.LittleEndian, tensors[k].V); err != nil {
			return fmt.Errorf("while writing %s values: %w", k, err)
		}
	}

	return nil
}

func ReadSafeTensors(r io.Reader) (map[string]*AF32, error) {
	var headerLen uint64
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("while reading header length: %w", err)
	}

	if headerLen > maxSafeTensorsHeaderLen {
		return nil, fmt.Errorf("header length %d exceeds limit of %d bytes", headerLen, maxSafeTensorsHeaderLen)
	}

	headerBytes := make([]byte, int(headerLen))
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("while reading header: %w", err)
	}

	header := map[string]SafeTensorInfo{}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("while reading header: %w", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("while reading tensor data: %w", err)
	}

	tensors := map[string]*AF32{}
	for k, hdr := range header {
		if hdr.DType != "F32" {
			return nil, fmt.Errorf("unsupported dtype %s", hdr.DType)
		}

		size := 1
		for _, s := range hdr.Shape {
			if s < 1 {
				return nil, fmt.Errorf("bad shape %v", hdr.Shape)
			}
			size *= s
		}

		if len(hdr.DataOffsets) != 2 || hdr.DataOffsets[1]-hdr.DataOffsets[0] != size*4 ||
			hdr.DataOffsets[0] < 0 || hdr.DataOffsets[1] > len(data) {
			return nil, fmt.Errorf("bad data offsets %v for %s", hdr.DataOffsets, k)
		}

		tensor := &AF32{
			V:     make([]float32, size),
			Shape: hdr.Shape,
		}
		valBytes := data[hdr.DataOffsets[0]:hdr.DataOffsets[1]]
		if err := binary.Read(bytes.NewReader(valBytes), binary.LittleEndian, tensor.V); err != nil {
			return nil, fmt.Errorf("while reading bytes for %s: %w", k, err)
		}

		tensors[k] = tensor
	}

	return tensors, nil
}

// LoadTensors replaces the network's weights and biases with the entries
// written by DumpTensors.  The network is left unchanged on error.
func (net *Network) LoadTensors(tensors map[string]*AF32) error {
	ws := make([]*AF32, len(net.Layers))
	bs := make([]*AF32, len(net.Layers))
	for l, lay := range net.Layers {
		weightKey := fmt.Sprintf("net.%d.weights", l)
		weightTensor, ok := tensors[weightKey]
		if !ok {
			return fmt.Errorf("no entry for %s", weightKey)
		}
		wantWeightShape := []int{lay.InputSize, lay.OutputSize}
		if !slices.Equal(weightTensor.Shape, wantWeightShape) {
			return fmt.Errorf("wrong shape for %s; got %v want %v", weightKey, weightTensor.Shape, wantWeightShape)
		}
		ws[l] = weightTensor

		biasKey := fmt.Sprintf("net.%d.biases", l)
		biasTensor, ok := tensors[biasKey]
		if !ok {
			return fmt.Errorf("no entry for %s", biasKey)
		}
		wantBiasShape := []int{lay.OutputSize}
		if !slices.Equal(biasTensor.Shape, wantBiasShape) {
			return fmt.Errorf("wrong shape for %s; got %v want %v", biasKey, biasTensor.Shape, wantBiasShape)
		}
		bs[l] = biasTensor
	}

	for l, lay := range net.Layers {
		copy(lay.W.V, ws[l].V)
		copy(lay.B.V, bs[l].V)
	}
	return nil
}

func (net *Network) DumpTensors(tensors map[string]*AF32) {
	for l, lay := range net.Layers {
		tensors[fmt.Sprintf("net.%d.weights", l)] = lay.W
		tensors[fmt.Sprintf("net.%d.biases", l)] = lay.B
	}
}
