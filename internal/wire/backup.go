package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"WalletCore/internal/crypto"
	"WalletCore/internal/wire/fb"
)

// BackupVersion is the current backup format version.
const BackupVersion = 1

// NewBackup sorts records by key and computes the checksum.
func NewBackup(records []Record) Backup {
	sorted := make([]Record, len(records))
	copy(sorted, records)

	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Key, sorted[j].Key) < 0
	})

	return Backup{
		Version:  BackupVersion,
		Records:  sorted,
		Checksum: backupChecksum(BackupVersion, sorted),
	}
}

// backupChecksum hashes version and length-prefixed records.
func backupChecksum(version uint32, records []Record) crypto.Hash {
	hasher := blake3.New()

	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], version)
	hasher.Write(buf[:4])

	for _, r := range records {
		binary.BigEndian.PutUint32(buf[:4], uint32(len(r.Key)))
		binary.BigEndian.PutUint32(buf[4:], uint32(len(r.Value)))
		hasher.Write(buf[:])
		hasher.Write(r.Key)
		hasher.Write(r.Value)
	}

	var h crypto.Hash
	copy(h[:], hasher.Sum(nil))

	return h
}

// EncodeBackup serializes and zstd-compresses a backup.
func EncodeBackup(b Backup) ([]byte, error) {
	builder := flatbuffers.NewBuilder(4096)

	records := make([]flatbuffers.UOffsetT, len(b.Records))
	for i, r := range b.Records {
		keyOffset := builder.CreateByteVector(r.Key)
		valueOffset := builder.CreateByteVector(r.Value)

		fb.RecordStart(builder)
		fb.RecordAddKey(builder, keyOffset)
		fb.RecordAddValue(builder, valueOffset)
		records[i] = fb.RecordEnd(builder)
	}

	recordsVector := tableVector(builder, records)
	checksumOffset := builder.CreateByteVector(b.Checksum[:])

	fb.BackupStart(builder)
	fb.BackupAddVersion(builder, b.Version)
	fb.BackupAddRecords(builder, recordsVector)
	fb.BackupAddChecksum(builder, checksumOffset)
	builder.Finish(fb.BackupEnd(builder))

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(builder.FinishedBytes(), nil), nil
}

// DecodeBackup decompresses a backup and verifies its version and checksum.
func DecodeBackup(data []byte) (Backup, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return Backup{}, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return Backup{}, fmt.Errorf("decompress backup:\n%w", err)
	}

	b, err := decodeBackupTable(raw)
	if err != nil {
		return Backup{}, err
	}

	if b.Version != BackupVersion {
		return Backup{}, fmt.Errorf("unsupported backup version %d", b.Version)
	}

	if want := backupChecksum(b.Version, b.Records); want != b.Checksum {
		return Backup{}, fmt.Errorf("backup checksum mismatch: got %s, want %s", b.Checksum, want)
	}

	return b, nil
}

// decodeBackupTable reads the uncompressed backup table.
func decodeBackupTable(raw []byte) (b Backup, err error) {
	defer decodeGuard("backup", &err)

	if err := checkRoot(raw, "backup"); err != nil {
		return Backup{}, err
	}

	t := fb.GetRootAsBackup(raw, 0)
	b.Version = t.Version()

	checksum, err := readHash(t.ChecksumBytes())
	if err != nil {
		return Backup{}, fmt.Errorf("backup checksum:\n%w", err)
	}
	b.Checksum = checksum

	b.Records = make([]Record, t.RecordsLength())

	var r fb.Record
	for i := range b.Records {
		t.Records(&r, i)
		b.Records[i] = Record{
			Key:   cloneBytes(r.KeyBytes()),
			Value: cloneBytes(r.ValueBytes()),
		}
	}

	return b, nil
}
