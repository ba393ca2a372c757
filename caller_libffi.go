//go:build !windows && !noffi && cgo
// +build !windows,!noffi,cgo

package zaffi

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <errno.h>
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

// No #include <ffi.h>: libffi is opened at runtime and its symbols looked up.

typedef struct ffi_type_s ffi_type;

struct ffi_type_s {
    size_t size;
    unsigned short alignment;
    unsigned short type;
    ffi_type **elements;
};

// Large enough for every ffi_cif layout in libffi 3.x.
typedef union {
    char opaque[128];
    void *p;
    long double ld;
} ffi_cif_storage;

_Static_assert(_Alignof(ffi_cif_storage) >= _Alignof(void*), "ffi_cif_storage must be pointer aligned");

typedef int (*ffi_prep_cif_func)(void *cif, int abi, unsigned int nargs, void *rtype, void **atypes);
typedef void (*ffi_call_func)(void *cif, void *fn, void *rvalue, void **avalue);

static ffi_prep_cif_func libffi_prep_cif = NULL;
static ffi_call_func libffi_call = NULL;
static void* libffi_handle = NULL;

// Indexed by NativeType. Slot 0 is void.
static ffi_type* native_ffi_types[14];

static int load_libffi(void) {
    if (libffi_handle != NULL) {
        return 1;
    }

    const char* paths[] = {
        "libffi.so.8",
        "libffi.so.7",
        "libffi.so.6",
        "libffi.so",
        "libffi.dylib",
        "libffi.8.dylib",
        "/usr/lib/x86_64-linux-gnu/libffi.so.8",
        "/usr/lib/aarch64-linux-gnu/libffi.so.8",
        "/usr/lib64/libffi.so.8",
        "/usr/lib/libffi.so.8",
        "/usr/local/lib/libffi.so.8",
        "/usr/local/lib/libffi.so",
        "/usr/pkg/lib/libffi.so",
        "/opt/homebrew/opt/libffi/lib/libffi.dylib",
        "/usr/local/opt/libffi/lib/libffi.dylib",
        NULL
    };

    for (int i = 0; paths[i] != NULL; i++) {
        libffi_handle = dlopen(paths[i], RTLD_LAZY | RTLD_LOCAL);
        if (libffi_handle != NULL) {
            break;
        }
    }
    if (libffi_handle == NULL) {
        return 0;
    }

    libffi_prep_cif = (ffi_prep_cif_func)dlsym(libffi_handle, "ffi_prep_cif");
    libffi_call = (ffi_call_func)dlsym(libffi_handle, "ffi_call");

    const char* names[14] = {
        "ffi_type_void",
        "ffi_type_sint8", "ffi_type_uint8",
        "ffi_type_sint16", "ffi_type_uint16",
        "ffi_type_sint32", "ffi_type_uint32",
        "ffi_type_sint64", "ffi_type_uint64",
        "ffi_type_float", "ffi_type_double",
        "ffi_type_uint8",
        "ffi_type_pointer", "ffi_type_pointer",
    };
    for (int i = 0; i < 14; i++) {
        native_ffi_types[i] = (ffi_type*)dlsym(libffi_handle, names[i]);
        if (native_ffi_types[i] == NULL) {
            libffi_prep_cif = NULL;
        }
    }

    if (libffi_prep_cif == NULL || libffi_call == NULL) {
        dlclose(libffi_handle);
        libffi_handle = NULL;
        return 0;
    }
    return 1;
}

// zaffi_call prepares a call interface and performs one call. Argument
// storage is owned by the caller. The result is widened into *out.
static int zaffi_call(void* fn, int abi, int nargs, int* atypes, void** avalues,
                      int rtype, uint64_t* out, int use_errno, int* errno_out) {
    if (libffi_handle == NULL) {
        return -1;
    }

    ffi_cif_storage cif;
    ffi_type* arg_types[nargs > 0 ? nargs : 1];
    for (int i = 0; i < nargs; i++) {
        if (atypes[i] <= 0 || atypes[i] > 13) {
            return -2;
        }
        arg_types[i] = native_ffi_types[atypes[i]];
    }
    if (rtype < 0 || rtype > 13) {
        return -2;
    }
    ffi_type* ret_type = native_ffi_types[rtype];

    if (libffi_prep_cif(&cif, abi, (unsigned int)nargs, ret_type, (void**)arg_types) != 0) {
        return -3;
    }

    union {
        uintptr_t word;
        uint64_t  u64;
        double    f64;
        float     f32;
        char      pad[16];
    } rv;
    memset(&rv, 0, sizeof(rv));

    if (use_errno) {
        errno = 0;
    }
    libffi_call(&cif, fn, &rv, avalues);
    if (use_errno) {
        *errno_out = errno;
    }

    switch (rtype) {
    case 0:
        *out = 0;
        break;
    case 7: case 8: case 10:
        memcpy(out, &rv, 8);
        break;
    case 9: {
        uint32_t b;
        memcpy(&b, &rv.f32, 4);
        *out = b;
        break;
    }
    default:
        // small integer returns are widened to a full register by libffi
        *out = (uint64_t)rv.word;
    }
    return 0;
}

static size_t zaffi_strlen(uintptr_t p) {
    return strlen((const char*)p);
}
*/
import "C"

import (
    "fmt"
    "sync"
    "unsafe"
)

var (
    libffiOnce      sync.Once
    libffiAvailable bool
)

// initLibFFI attempts to load libffi dynamically.
func initLibFFI() bool {
    libffiOnce.Do(func() {
        libffiAvailable = C.load_libffi() == 1
    })
    return libffiAvailable
}

type libffiCaller struct{}

func newLibffiCaller() (caller, error) {
    if !initLibFFI() {
        return nil, fmt.Errorf("libffi could not be loaded")
    }
    return libffiCaller{}, nil
}

func (libffiCaller) Name() string { return BackendLibffi }

// Call marshals args into C memory, calls fn through libffi and copies
// buffer arguments back.
func (libffiCaller) Call(fn uintptr, sig CallSignature, args []NativeArg) (NativeResult, error) {
    n := len(args)
    if n != len(sig.Args) {
        return NativeResult{}, fmt.Errorf("libffi: %d argument types for %d arguments", len(sig.Args), n)
    }

    var (
        slots   unsafe.Pointer
        avalues unsafe.Pointer
        atypes  unsafe.Pointer
        bufs    = make([]unsafe.Pointer, n)
    )
    if n > 0 {
        slots = C.calloc(C.size_t(n), 8)
        avalues = C.calloc(C.size_t(n), C.size_t(unsafe.Sizeof(uintptr(0))))
        atypes = C.calloc(C.size_t(n), C.size_t(unsafe.Sizeof(C.int(0))))
        defer C.free(slots)
        defer C.free(avalues)
        defer C.free(atypes)
    }
    defer func() {
        for _, b := range bufs {
            if b != nil {
                C.free(b)
            }
        }
    }()

    slotMem := unsafe.Slice((*byte)(slots), n*8)
    avs := unsafe.Slice((*unsafe.Pointer)(avalues), n)
    ats := unsafe.Slice((*C.int)(atypes), n)

    for i, a := range args {
        t := sig.Args[i]
        ats[i] = C.int(t)
        bits := a.Bits
        if a.Buf != nil {
            bufs[i] = C.CBytes(a.Buf)
            bits = uint64(uintptr(bufs[i]))
        }
        writeBits(slotMem[i*8:i*8+8], t, bits)
        avs[i] = unsafe.Add(slots, i*8)
    }

    rt := sig.Ret
    var out C.uint64_t
    var errno C.int
    useErrno := C.int(0)
    if sig.UseErrno {
        useErrno = 1
    }

    rc := C.zaffi_call(unsafe.Pointer(fn), C.int(sig.Conv.ffiABI()), C.int(n),
        (*C.int)(atypes), (*unsafe.Pointer)(avalues), C.int(rt), &out, useErrno, &errno)
    switch rc {
    case 0:
    case -1:
        return NativeResult{}, fmt.Errorf("libffi not available")
    case -2:
        return NativeResult{}, fmt.Errorf("libffi: unknown native type")
    case -3:
        return NativeResult{}, fmt.Errorf("libffi: ffi_prep_cif failed for %s convention", sig.Conv)
    default:
        return NativeResult{}, fmt.Errorf("libffi call failed with code %d", int(rc))
    }

    for i, a := range args {
        if bufs[i] != nil {
            copy(a.Buf, unsafe.Slice((*byte)(bufs[i]), len(a.Buf)))
        }
    }

    res := NativeResult{Bits: uint64(out), Errno: int(errno)}
    if rt == TCharP && res.Bits != 0 {
        p := uintptr(res.Bits)
        res.Str = C.GoBytes(unsafe.Pointer(p), C.int(C.zaffi_strlen(C.uintptr_t(p))))
    }
    return res, nil
}
