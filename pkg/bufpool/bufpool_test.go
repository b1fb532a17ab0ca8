package bufpool

import "testing"

func TestGetReturnsRequestedLength(t *testing.T) {
	for _, size := range []int{1, 512, BlockSize, BlockSize + 1, LargeSize, LargeSize + 1} {
		buf := Get(size)
		if len(buf) != size {
			t.Errorf("Get(%d) returned len %d", size, len(buf))
		}
		Put(buf)
	}
}

func TestPooledCapacities(t *testing.T) {
	small := Get(100)
	if cap(small) != BlockSize {
		t.Errorf("small buffer capacity = %d, want %d", cap(small), BlockSize)
	}
	Put(small)

	big := Get(BlockSize + 1)
	if cap(big) != LargeSize {
		t.Errorf("medium buffer capacity = %d, want %d", cap(big), LargeSize)
	}
	Put(big)

	huge := Get(LargeSize + 1)
	if cap(huge) != LargeSize+1 {
		t.Errorf("oversize buffer capacity = %d, want exact size", cap(huge))
	}
	Put(huge) // must not panic
}

func TestPutNilIsSafe(t *testing.T) {
	Put(nil)
}
