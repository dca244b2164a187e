// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package metadata

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/flatcar-linux/otaextract/errdef"
)

// OpType is an InstallOperation's encoding, matching
// chromeos_update_engine.InstallOperation.Type.
type OpType int32

const (
	OpReplace      OpType = 0
	OpReplaceBZ    OpType = 1
	OpSourceCopy   OpType = 2
	OpSourceBsdiff OpType = 3
	OpZero         OpType = 6
	OpDiscard      OpType = 7
	OpReplaceXZ    OpType = 8
	OpPuffdiff     OpType = 9
	OpZucchini     OpType = 10
	OpBrotliBsdiff OpType = 11
)

func (t OpType) String() string {
	switch t {
	case OpReplace:
		return "REPLACE"
	case OpReplaceBZ:
		return "REPLACE_BZ"
	case OpSourceCopy:
		return "SOURCE_COPY"
	case OpSourceBsdiff:
		return "SOURCE_BSDIFF"
	case OpZero:
		return "ZERO"
	case OpDiscard:
		return "DISCARD"
	case OpReplaceXZ:
		return "REPLACE_XZ"
	case OpPuffdiff:
		return "PUFFDIFF"
	case OpZucchini:
		return "ZUCCHINI"
	case OpBrotliBsdiff:
		return "BROTLI_BSDIFF"
	default:
		return fmt.Sprintf("OpType(%d)", int32(t))
	}
}

// Incremental reports whether t is one of the delta-against-a-base-image
// operation types this engine refuses to apply.
func (t OpType) Incremental() bool {
	switch t {
	case OpSourceCopy, OpSourceBsdiff, OpPuffdiff, OpZucchini, OpBrotliBsdiff:
		return true
	default:
		return false
	}
}

// Recognized reports whether t is a type this engine knows about at all,
// incremental or not.
func (t OpType) Recognized() bool {
	switch t {
	case OpReplace, OpReplaceBZ, OpReplaceXZ, OpZero, OpDiscard,
		OpSourceCopy, OpSourceBsdiff, OpPuffdiff, OpZucchini, OpBrotliBsdiff:
		return true
	default:
		return false
	}
}

// Extent is a (start_block, num_blocks) range in partition block units.
type Extent struct {
	StartBlock uint64
	NumBlocks  uint64
}

func (e *Extent) GetStartBlock() uint64 {
	if e == nil {
		return 0
	}
	return e.StartBlock
}

func (e *Extent) GetNumBlocks() uint64 {
	if e == nil {
		return 0
	}
	return e.NumBlocks
}

// Operation is one InstallOperation from a partition's recipe.
type Operation struct {
	Type           OpType
	DataOffset     *uint64
	DataLength     *uint64
	DataSHA256Hash []byte
	DstExtents     []*Extent
}

func (o *Operation) GetType() OpType {
	if o == nil {
		return OpReplace
	}
	return o.Type
}

func (o *Operation) GetDataOffset() uint64 {
	if o == nil || o.DataOffset == nil {
		return 0
	}
	return *o.DataOffset
}

func (o *Operation) HasDataOffset() bool {
	return o != nil && o.DataOffset != nil
}

func (o *Operation) GetDataLength() uint64 {
	if o == nil || o.DataLength == nil {
		return 0
	}
	return *o.DataLength
}

func (o *Operation) HasDataLength() bool {
	return o != nil && o.DataLength != nil
}

func (o *Operation) GetDataSHA256Hash() []byte {
	if o == nil {
		return nil
	}
	return o.DataSHA256Hash
}

func (o *Operation) GetDstExtents() []*Extent {
	if o == nil {
		return nil
	}
	return o.DstExtents
}

// DataBearing reports whether the operation carries source bytes in the
// payload's data region (as opposed to ZERO/DISCARD, which don't).
func (o *Operation) DataBearing() bool {
	switch o.GetType() {
	case OpZero, OpDiscard:
		return false
	default:
		return true
	}
}

// PartitionInfo describes a partition's expected final image.
type PartitionInfo struct {
	Size *uint64
	Hash []byte
}

func (p *PartitionInfo) GetSize() uint64 {
	if p == nil || p.Size == nil {
		return 0
	}
	return *p.Size
}

func (p *PartitionInfo) GetHash() []byte {
	if p == nil {
		return nil
	}
	return p.Hash
}

// PartitionUpdate is one named output image and its operation recipe.
type PartitionUpdate struct {
	PartitionName    string
	Operations       []*Operation
	NewPartitionInfo *PartitionInfo
}

func (p *PartitionUpdate) GetPartitionName() string {
	if p == nil {
		return ""
	}
	return p.PartitionName
}

func (p *PartitionUpdate) GetOperations() []*Operation {
	if p == nil {
		return nil
	}
	return p.Operations
}

func (p *PartitionUpdate) GetNewPartitionInfo() *PartitionInfo {
	if p == nil {
		return nil
	}
	return p.NewPartitionInfo
}

// Manifest is the decoded DeltaArchiveManifest.
type Manifest struct {
	BlockSize    *uint32
	MinorVersion *uint32
	Partitions   []*PartitionUpdate
}

// DefaultBlockSize is used when the manifest omits block_size, matching
// the upstream proto's declared default.
const DefaultBlockSize = 4096

func (m *Manifest) GetBlockSize() uint32 {
	if m == nil || m.BlockSize == nil {
		return DefaultBlockSize
	}
	return *m.BlockSize
}

func (m *Manifest) GetMinorVersion() uint32 {
	if m == nil || m.MinorVersion == nil {
		return 0
	}
	return *m.MinorVersion
}

func (m *Manifest) GetPartitions() []*PartitionUpdate {
	if m == nil {
		return nil
	}
	return m.Partitions
}

// Field numbers from chromeos_update_engine's update_metadata.proto.
const (
	fieldManifestBlockSize    protowire.Number = 3
	fieldManifestMinorVersion protowire.Number = 12
	fieldManifestPartitions   protowire.Number = 13

	fieldPartitionName       protowire.Number = 1
	fieldPartitionNewInfo    protowire.Number = 7
	fieldPartitionOperations protowire.Number = 8

	fieldOpType       protowire.Number = 1
	fieldOpDataOffset protowire.Number = 2
	fieldOpDataLength protowire.Number = 3
	fieldOpDstExtents protowire.Number = 6
	fieldOpDataHash   protowire.Number = 8

	fieldExtentStartBlock protowire.Number = 1
	fieldExtentNumBlocks  protowire.Number = 2

	fieldPartitionInfoSize protowire.Number = 1
	fieldPartitionInfoHash protowire.Number = 2
)

// DecodeManifest decodes a DeltaArchiveManifest from its serialized
// protobuf bytes. There is no protoc-generated binding available in this
// environment, so this walks the wire format directly with
// google.golang.org/protobuf/encoding/protowire — the same package the
// generated code itself would use underneath.
func DecodeManifest(b []byte) (*Manifest, error) {
	m := &Manifest{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, decodeErr("manifest", n)
		}
		b = b[n:]

		switch {
		case num == fieldManifestBlockSize && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, decodeErr("manifest.block_size", n)
			}
			b = b[n:]
			bs := uint32(v)
			m.BlockSize = &bs

		case num == fieldManifestMinorVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, decodeErr("manifest.minor_version", n)
			}
			b = b[n:]
			mv := uint32(v)
			m.MinorVersion = &mv

		case num == fieldManifestPartitions && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, decodeErr("manifest.partitions", n)
			}
			b = b[n:]
			p, err := decodePartitionUpdate(v)
			if err != nil {
				return nil, err
			}
			m.Partitions = append(m.Partitions, p)

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, decodeErr("manifest", n)
			}
			b = b[n:]
		}
	}

	return m, nil
}

func decodePartitionUpdate(b []byte) (*PartitionUpdate, error) {
	p := &PartitionUpdate{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, decodeErr("partition", n)
		}
		b = b[n:]

		switch {
		case num == fieldPartitionName && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, decodeErr("partition.partition_name", n)
			}
			b = b[n:]
			p.PartitionName = string(v)

		case num == fieldPartitionNewInfo && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, decodeErr("partition.new_partition_info", n)
			}
			b = b[n:]
			info, err := decodePartitionInfo(v)
			if err != nil {
				return nil, err
			}
			p.NewPartitionInfo = info

		case num == fieldPartitionOperations && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, decodeErr("partition.operations", n)
			}
			b = b[n:]
			op, err := decodeOperation(v)
			if err != nil {
				return nil, err
			}
			p.Operations = append(p.Operations, op)

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, decodeErr("partition", n)
			}
			b = b[n:]
		}
	}

	if p.PartitionName == "" {
		return nil, errdef.New(errdef.ManifestDecode, fmt.Errorf("partition is missing partition_name"))
	}

	return p, nil
}

func decodePartitionInfo(b []byte) (*PartitionInfo, error) {
	info := &PartitionInfo{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, decodeErr("partition_info", n)
		}
		b = b[n:]

		switch {
		case num == fieldPartitionInfoSize && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, decodeErr("partition_info.size", n)
			}
			b = b[n:]
			info.Size = &v

		case num == fieldPartitionInfoHash && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, decodeErr("partition_info.hash", n)
			}
			b = b[n:]
			info.Hash = append([]byte(nil), v...)

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, decodeErr("partition_info", n)
			}
			b = b[n:]
		}
	}

	return info, nil
}

func decodeOperation(b []byte) (*Operation, error) {
	op := &Operation{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, decodeErr("operation", n)
		}
		b = b[n:]

		switch {
		case num == fieldOpType && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, decodeErr("operation.type", n)
			}
			b = b[n:]
			op.Type = OpType(v)

		case num == fieldOpDataOffset && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, decodeErr("operation.data_offset", n)
			}
			b = b[n:]
			op.DataOffset = &v

		case num == fieldOpDataLength && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, decodeErr("operation.data_length", n)
			}
			b = b[n:]
			op.DataLength = &v

		case num == fieldOpDstExtents && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, decodeErr("operation.dst_extents", n)
			}
			b = b[n:]
			ext, err := decodeExtent(v)
			if err != nil {
				return nil, err
			}
			op.DstExtents = append(op.DstExtents, ext)

		case num == fieldOpDataHash && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, decodeErr("operation.data_sha256_hash", n)
			}
			b = b[n:]
			op.DataSHA256Hash = append([]byte(nil), v...)

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, decodeErr("operation", n)
			}
			b = b[n:]
		}
	}

	return op, nil
}

func decodeExtent(b []byte) (*Extent, error) {
	e := &Extent{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, decodeErr("extent", n)
		}
		b = b[n:]

		switch {
		case num == fieldExtentStartBlock && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, decodeErr("extent.start_block", n)
			}
			b = b[n:]
			e.StartBlock = v

		case num == fieldExtentNumBlocks && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, decodeErr("extent.num_blocks", n)
			}
			b = b[n:]
			e.NumBlocks = v

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, decodeErr("extent", n)
			}
			b = b[n:]
		}
	}

	return e, nil
}

// decodeErr reports a protowire Consume* failure (indicated by a negative
// count) while decoding the named field.
func decodeErr(field string, consumedN int) error {
	return errdef.New(errdef.ManifestDecode, fmt.Errorf(
		"decoding %s: truncated or invalid protobuf encoding (%d)", field, consumedN))
}
