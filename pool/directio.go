package pool

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// readFromDisk opens file with direct I/O (creating it if missing) and
// reads the block at aligned offset. It returns (nil, nil) when the block
// lies past end-of-file.
func (p *Pool) readFromDisk(file string, aligned int64) (*Block, error) {
	fd, err := unix.Open(file, unix.O_RDWR|unix.O_CREAT|unix.O_DIRECT, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pool: open %s: %w", file, err)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, fmt.Errorf("pool: stat %s: %w", file, err)
	}
	if aligned+BlockSize > st.Size {
		return nil, nil
	}

	blk := newAlignedBlock(file, aligned)
	if err := preadFull(fd, blk.bytes, aligned); err != nil {
		return nil, fmt.Errorf("pool: read %s at %d: %w", file, aligned, err)
	}
	return blk, nil
}

// writeBack persists a single dirty block to its file at its aligned
// offset, via a positional direct-I/O write.
func (p *Pool) writeBack(blk *Block) error {
	fd, err := unix.Open(blk.file, unix.O_RDWR|unix.O_CREAT|unix.O_DIRECT, 0o644)
	if err != nil {
		return fmt.Errorf("pool: open %s: %w", blk.file, err)
	}
	defer unix.Close(fd)

	if err := pwriteFull(fd, blk.bytes, blk.offset); err != nil {
		return fmt.Errorf("pool: write %s at %d: %w", blk.file, blk.offset, err)
	}
	return nil
}

func preadFull(fd int, buf []byte, offset int64) error {
	for len(buf) > 0 {
		n, err := unix.Pread(fd, buf, offset)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("unexpected EOF")
		}
		buf = buf[n:]
		offset += int64(n)
	}
	return nil
}

func pwriteFull(fd int, buf []byte, offset int64) error {
	for len(buf) > 0 {
		n, err := unix.Pwrite(fd, buf, offset)
		if err != nil {
			return err
		}
		buf = buf[n:]
		offset += int64(n)
	}
	return nil
}
