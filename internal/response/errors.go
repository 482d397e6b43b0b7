package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrStaffAccessOnly   ErrCode = "STAFF_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation  ErrCode = "VALIDATION_ERROR"
	ErrInvalidID   ErrCode = "INVALID_ID"
	ErrInvalidBody ErrCode = "INVALID_PAYLOAD"

	// ─── Exam lifecycle ────────────────────────────────────────────────
	ErrExamNotFound         ErrCode = "EXAM_NOT_FOUND"
	ErrExamNotStarted       ErrCode = "EXAM_NOT_STARTED"
	ErrExamAlreadyEnded     ErrCode = "EXAM_ALREADY_ENDED"
	ErrExamAlreadySubmitted ErrCode = "EXAM_ALREADY_SUBMITTED"
	ErrInvalidAnswers       ErrCode = "INVALID_ANSWERS"
	ErrResultNotFound       ErrCode = "RESULT_NOT_FOUND"

	// ─── Live feed ─────────────────────────────────────────────────────
	ErrFeedUnavailable ErrCode = "LIVE_FEED_UNAVAILABLE"

	// ─── Server ────────────────────────────────────────────────────────
	ErrStoreUnavailable ErrCode = "STORE_UNAVAILABLE"
	ErrInternal         ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Anda tidak memiliki izin untuk mengakses sumber daya ini."
	case ErrStudentAccessOnly:
		return "Sumber daya ini terbatas untuk siswa."
	case ErrStaffAccessOnly:
		return "Sumber daya ini terbatas untuk guru dan administrator."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidBody:
		return "Payload permintaan tidak valid."

	// ─── Exam lifecycle ────────────────────────────────────────────────
	case ErrExamNotFound:
		return "Ujian tidak ditemukan."
	case ErrExamNotStarted:
		return "Ujian belum dimulai."
	case ErrExamAlreadyEnded:
		return "Waktu ujian telah berakhir."
	case ErrExamAlreadySubmitted:
		return "Anda sudah mengumpulkan ujian ini."
	case ErrInvalidAnswers:
		return "Jawaban tidak ada atau formatnya tidak valid."
	case ErrResultNotFound:
		return "Hasil ujian Anda tidak ditemukan."

	// ─── Live feed ─────────────────────────────────────────────────────
	case ErrFeedUnavailable:
		return "Pemantauan langsung tidak aktif."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrStoreUnavailable:
		return "Penyimpanan sedang tidak tersedia. Silakan coba lagi."
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
