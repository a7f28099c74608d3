package database

// FaceEmbeddingDim is the width of the face_embeddings.embedding column (512 for buffalo_l).
const FaceEmbeddingDim = 512
