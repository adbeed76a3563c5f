package source

import (
	"fmt"
)

// recomputeSize derives the AF_PACKET ring geometry from a memory budget.
//
// PACKET_MMAP requires:
// 1. frameSize must be a multiple of TPACKET_ALIGNMENT (16 bytes)
// 2. blockSize must be a multiple of pageSize
// 3. blockSize must hold at least one frame
//
// blockSize * numBlocks approximates bufferSizeMB.
func recomputeSize(bufferSizeMB, snapLen, pageSize int) (frameSize, blockSize, numBlocks int, err error) {
	const tpacketAlignment = 16
	const tpacketHdrLen = 52 // TPACKET3_HDRLEN, rounded
	const maxBlockSize = 4 * 1024 * 1024

	if bufferSizeMB <= 0 {
		return 0, 0, 0, fmt.Errorf("bufferSizeMB must be positive, got %d", bufferSizeMB)
	}
	if snapLen <= 0 {
		return 0, 0, 0, fmt.Errorf("snapLen must be positive, got %d", snapLen)
	}
	if pageSize <= 0 || pageSize%tpacketAlignment != 0 {
		return 0, 0, 0, fmt.Errorf("pageSize must be positive and multiple of %d, got %d", tpacketAlignment, pageSize)
	}

	frameSize = alignUp(tpacketHdrLen+snapLen, tpacketAlignment)

	blockSize = lcm(pageSize, frameSize)
	if blockSize > maxBlockSize {
		// No exact multiple within the limit; the tail of each block is unused.
		blockSize = alignUp(frameSize, pageSize)
		if blockSize < maxBlockSize {
			blockSize = (maxBlockSize / blockSize) * blockSize
		}
	}

	numBlocks = bufferSizeMB * 1024 * 1024 / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}
	return frameSize, blockSize, numBlocks, nil
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}
